package bench

import "github.com/westshgit/apidoc/cowstr"

// Scenario names for the string ownership comparison.
const (
	ConstructShared = "construct-shared"
	ConstructOwned  = "construct-owned"
	MutateShared    = "mutate-shared"
	MutateOwned     = "mutate-owned"
)

// Sinks keep measured values observable.
var (
	valueSink cowstr.Value
	bytesSink []byte
)

// StringScenarios returns the four borrowed-vs-owned scenarios over corpus.
func StringScenarios(corpus string) []Scenario {
	return []Scenario{
		{
			Name: ConstructShared,
			Run: func() {
				valueSink = cowstr.Borrowed(corpus)
			},
		},
		{
			Name: ConstructOwned,
			Run: func() {
				valueSink = cowstr.Owned(corpus)
			},
		},
		{
			Name: MutateShared,
			Run: func() {
				v := cowstr.Borrowed(corpus)
				v.Promote()
				v.Append(corpus)
				bytesSink = v.IntoOwned()
			},
		},
		{
			Name: MutateOwned,
			Run: func() {
				v := cowstr.Owned(corpus)
				v.Append(corpus)
				bytesSink = v.IntoOwned()
			},
		},
	}
}

// Last returns the buffer produced by the most recent mutate scenario.
func Last() []byte {
	return bytesSink
}
