package tour

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathga/internal/evo"
	"pathga/internal/model"
)

func square() []City {
	return []City{
		{Name: "a", X: 0, Y: 0},
		{Name: "b", X: 0, Y: 1},
		{Name: "c", X: 1, Y: 1},
		{Name: "d", X: 1, Y: 0},
	}
}

func TestMatrixDistance(t *testing.T) {
	m := NewMatrix(square())
	assert.InDelta(t, 4.0, m.Distance([]int{0, 1, 2, 3}), 1e-12)
	assert.InDelta(t, 2+2*math.Sqrt2, m.Distance([]int{0, 2, 1, 3}), 1e-12)
	assert.Equal(t, 0.0, m.Distance([]int{0}))
}

func TestValidateCities(t *testing.T) {
	require.NoError(t, ValidateCities(square()))
	assert.ErrorIs(t, ValidateCities(square()[:2]), ErrTooFewCities)

	dup := square()
	dup[1].Name = "a"
	assert.ErrorIs(t, ValidateCities(dup), ErrDuplicateCity)

	bad := square()
	bad[2].X = math.NaN()
	assert.ErrorIs(t, ValidateCities(bad), ErrBadCoordinate)

	unnamed := square()
	unnamed[0].Name = " "
	assert.Error(t, ValidateCities(unnamed))

	stacked := []City{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	assert.ErrorIs(t, ValidateCities(stacked), ErrZeroPerimeter)

	collinear := []City{{Name: "a"}, {Name: "b"}, {Name: "c", X: 2}}
	assert.NoError(t, ValidateCities(collinear))
}

func TestSearchRejectsZeroPerimeter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generations = 3
	stacked := []City{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	_, err := Search(context.Background(), stacked, cfg, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrZeroPerimeter)

	result, err := Search(context.Background(), []City{{Name: "a"}, {Name: "b"}, {Name: "c", X: 2}}, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 4.0, result.Distance)
	for _, d := range result.GenerationDiagnostics {
		assert.False(t, math.IsInf(d.BestFitness, 0))
		assert.InDelta(t, 0.25, d.BestFitness, 1e-12)
	}
}

func TestOrderedCrossoverProducesPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		p1 := rng.Perm(9)
		p2 := rng.Perm(9)
		child := OrderedCrossover(rng, p1, p2)
		require.True(t, IsPermutation(child, 9), "child %v of %v x %v", child, p1, p2)
	}
}

func TestOrderedCrossoverKeepsParentSegment(t *testing.T) {
	p1 := []int{0, 1, 2, 3, 4, 5}
	p2 := []int{5, 4, 3, 2, 1, 0}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		child := OrderedCrossover(rng, p1, p2)
		require.True(t, IsPermutation(child, 6))

		var fixed []int
		for pos, city := range child {
			if city == p1[pos] {
				fixed = append(fixed, pos)
			}
		}
		require.GreaterOrEqual(t, len(fixed), 2, "segment of at least two cities from p1")
	}
}

func TestSwapMutation(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	tour := []int{0, 1, 2, 3, 4}
	out := SwapMutation(rng, tour)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, tour)
	require.True(t, IsPermutation(out, 5))

	diff := 0
	for i := range tour {
		if tour[i] != out[i] {
			diff++
		}
	}
	assert.Equal(t, 2, diff)
}

func TestRotateAndIsPermutation(t *testing.T) {
	assert.Equal(t, []int{0, 3, 1, 2}, Rotate([]int{1, 2, 0, 3}, 0))
	assert.True(t, IsPermutation([]int{2, 0, 1}, 3))
	assert.False(t, IsPermutation([]int{2, 2, 1}, 3))
	assert.False(t, IsPermutation([]int{0, 1}, 3))
	assert.Equal(t, tourKey([]int{2, 0, 1}), tourKey([]int{0, 1, 2}))
}

func TestSearchSquareFindsPerimeter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 30
	cfg.Generations = 50

	res, err := Search(context.Background(), square(), cfg, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.InDelta(t, 4.0, res.Distance, 1e-9)
	assert.Equal(t, 0, res.Tour[0])
	assert.Equal(t, "a", res.Route[0])
	assert.True(t, IsPermutation(res.Tour, 4))
	assert.Len(t, res.BestByGeneration, cfg.Generations)
	assert.Equal(t, cfg.Generations*cfg.PopulationSize, res.Evaluations)
}

func TestSearchExam11(t *testing.T) {
	cities, err := Builtin("exam-11")
	require.NoError(t, err)
	require.Len(t, cities, 11)

	cfg := DefaultConfig()
	cfg.Generations = 300
	var seen []model.GenerationDiagnostics
	cfg.Observer = func(d model.GenerationDiagnostics) { seen = append(seen, d) }

	res, err := Search(context.Background(), cities, cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.True(t, IsPermutation(res.Tour, len(cities)))
	assert.Equal(t, 0, res.Tour[0])
	assert.InDelta(t, NewMatrix(cities).Distance(res.Tour), res.Distance, 1e-9)
	require.Len(t, seen, cfg.Generations)

	for i := 1; i < len(res.BestByGeneration); i++ {
		require.LessOrEqual(t, res.BestByGeneration[i], res.BestByGeneration[i-1])
	}
	assert.Equal(t, res.Distance, res.BestByGeneration[len(res.BestByGeneration)-1])
}

func TestSearchDeterministic(t *testing.T) {
	cities, err := Builtin("exam-11")
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Generations = 80

	a, err := Search(context.Background(), cities, cfg, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	b, err := Search(context.Background(), cities, cfg, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Equal(t, a.Tour, b.Tour)
	assert.Equal(t, a.BestByGeneration, b.BestByGeneration)
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	_, err := Search(ctx, square(), DefaultConfig(), nil)
	assert.Error(t, err)

	_, err = Search(ctx, square()[:2], DefaultConfig(), rng)
	assert.ErrorIs(t, err, ErrTooFewCities)

	cfg := DefaultConfig()
	cfg.EliteCount = cfg.PopulationSize + 1
	_, err = Search(ctx, square(), cfg, rng)
	assert.ErrorIs(t, err, evo.ErrInvalidConfig)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Search(cancelled, square(), DefaultConfig(), rng)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeCities(t *testing.T) {
	cities, err := Decode(strings.NewReader(`[{"name":"x","x":0,"y":0},{"name":"y","x":3,"y":4},{"name":"z","x":0,"y":4}]`))
	require.NoError(t, err)
	require.Len(t, cities, 3)
	assert.InDelta(t, 12.0, NewMatrix(cities).Distance([]int{0, 1, 2}), 1e-12)

	_, err = Decode(strings.NewReader(`[{"name":"x","x":0,"y":0}]`))
	assert.ErrorIs(t, err, ErrTooFewCities)

	_, err = Builtin("nowhere")
	assert.Error(t, err)
	assert.Equal(t, []string{"exam-11"}, BuiltinNames())
}
