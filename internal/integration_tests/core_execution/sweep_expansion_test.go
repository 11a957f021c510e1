package core_execution_test

import (
	"fmt"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// TestSweep_MultiplicativeExpansion validates that a node fed by two
// independent sweeps of 2 and 3 values runs once per combination.
func TestSweep_MultiplicativeExpansion(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	workflow := `
		node "a" {
			task = "sum"
			iterables {
				a = [1, 2]
			}
		}

		node "b" {
			task = "sum"
			iterables {
				a = [10, 20, 30]
			}
		}

		node "c" {
			task = "sum"
			inputs {
				a = node.a.total
				b = node.b.total
			}
		}
	`
	module := &testutil.SumModule{}

	// --- Act ---
	result := testutil.RunWorkflowTest(t, workflow, module)

	// --- Assert ---
	require.NoError(t, result.Err, result.Output)
	for i := range 2 {
		for j := range 3 {
			testutil.AssertInstanceState(t, result, fmt.Sprintf("c[a=%d,b=%d]", i, j), "succeeded")
		}
	}
	require.Equal(t, int64(2+3+6), module.Calls.Load())
}

// TestSweep_DiamondIsNotMultipliedTwice validates that a sweep reaching a
// node along two paths contributes one coordinate, not two.
func TestSweep_DiamondIsNotMultipliedTwice(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	workflow := `
		node "src" {
			task = "sum"
			iterables {
				a = [1, 2]
			}
		}

		node "left" {
			task = "sum"
			inputs {
				a = node.src.total
				b = 100
			}
		}

		node "right" {
			task = "sum"
			inputs {
				a = node.src.total
				b = 200
			}
		}

		node "join" {
			task = "sum"
			inputs {
				a = node.left.total
				b = node.right.total
			}
		}
	`
	module := &testutil.SumModule{}

	// --- Act ---
	result := testutil.RunWorkflowTest(t, workflow, module)

	// --- Assert ---
	require.NoError(t, result.Err, result.Output)
	testutil.AssertInstanceState(t, result, "join[src=0]", "succeeded")
	testutil.AssertInstanceState(t, result, "join[src=1]", "succeeded")
	require.NotContains(t, result.Output, "join[src=2]")
	require.Equal(t, int64(8), module.Calls.Load())
}

// TestSweep_MultipleIterablesOnOneNode validates the cross product of two
// iterables declared on the same node.
func TestSweep_MultipleIterablesOnOneNode(t *testing.T) {
	t.Parallel()
	workflow := `
		node "grid" {
			task = "sum"
			iterables {
				a = [1, 2, 3]
				b = [10, 20]
			}
		}
	`
	module := &testutil.SumModule{}
	result := testutil.RunWorkflowTest(t, workflow, module)

	require.NoError(t, result.Err, result.Output)
	require.Equal(t, int64(6), module.Calls.Load())
	require.Contains(t, result.Output, "6 succeeded")
}
