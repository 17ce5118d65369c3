package remap

import (
	"context"
	"math/rand"
	"testing"

	"github.com/hupe1980/vqlayer/blobstore"
	"github.com/hupe1980/vqlayer/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func index(t *testing.T, data []int64, shape ...int) *tensor.Index {
	t.Helper()
	x, err := tensor.FromSlice(data, shape...)
	require.NoError(t, err)
	return x
}

func TestNew(t *testing.T) {
	used := []int64{3, 7, 11}

	r, err := New(used, UnknownExtra(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, r.ReEmbed())
	assert.Equal(t, int64(3), r.UnknownIndex())

	r, err = New(used, UnknownFixed(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r.ReEmbed())
	assert.Equal(t, int64(1), r.UnknownIndex())

	r, err = New(used, UnknownRandom(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 3, r.ReEmbed())
	assert.Equal(t, int64(-1), r.UnknownIndex())

	_, err = New(used, UnknownRandom(), nil)
	assert.Error(t, err)
	_, err = New(nil, UnknownExtra(), nil)
	assert.ErrorIs(t, err, ErrEmptyUsed)

	// Used is copied on the way in and out.
	used[0] = 99
	got := r.Used()
	assert.Equal(t, []int64{3, 7, 11}, got)
	got[0] = 42
	assert.Equal(t, []int64{3, 7, 11}, r.Used())
}

func TestRoundTrip(t *testing.T) {
	used := []int64{3, 7, 11, 0}
	for _, p := range []UnknownPolicy{UnknownExtra(), UnknownFixed(2), UnknownRandom()} {
		t.Run(p.String(), func(t *testing.T) {
			r, err := New(used, p, rand.New(rand.NewSource(1)))
			require.NoError(t, err)

			full := index(t, []int64{3, 7, 11, 0, 11, 3}, 2, 3)
			red, err := r.ToUsed(full)
			require.NoError(t, err)
			assert.Equal(t, []int{2, 3}, red.Shape())
			assert.Equal(t, []int64{0, 1, 2, 3, 2, 0}, red.Data())

			back, err := r.ToFull(red)
			require.NoError(t, err)
			assert.Equal(t, full.Data(), back.Data())
		})
	}
}

func TestToUsed_Unknown(t *testing.T) {
	used := []int64{3, 7, 11}
	full := index(t, []int64{5, 3, 9, 12}, 1, 4)

	t.Run("Extra", func(t *testing.T) {
		r, err := New(used, UnknownExtra(), nil)
		require.NoError(t, err)
		red, err := r.ToUsed(full)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 0, 3, 3}, red.Data())
	})

	t.Run("Fixed", func(t *testing.T) {
		r, err := New(used, UnknownFixed(1), nil)
		require.NoError(t, err)
		red, err := r.ToUsed(full)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 0, 1, 1}, red.Data())
	})

	t.Run("RandomInRangeAndSeeded", func(t *testing.T) {
		big := index(t, make([]int64, 200), 4, 50) // all zeros, none in used
		run := func() []int64 {
			r, err := New(used, UnknownRandom(), rand.New(rand.NewSource(7)))
			require.NoError(t, err)
			red, err := r.ToUsed(big)
			require.NoError(t, err)
			return red.Data()
		}
		a := run()
		for _, v := range a {
			assert.GreaterOrEqual(t, v, int64(0))
			assert.Less(t, v, int64(3))
		}
		assert.Equal(t, a, run())
	})
}

func TestToFull_ExtraMapsToZero(t *testing.T) {
	r, err := New([]int64{3, 7, 11}, UnknownExtra(), nil)
	require.NoError(t, err)

	got, err := r.ToFull(index(t, []int64{3, 1, 5}, 1, 3))
	require.NoError(t, err)
	// Reduced 3 (the extra slot) and anything beyond it go to used[0].
	assert.Equal(t, []int64{3, 7, 3}, got.Data())
}

func TestToFull_OutOfRange(t *testing.T) {
	r, err := New([]int64{3, 7, 11}, UnknownFixed(0), nil)
	require.NoError(t, err)

	_, err = r.ToFull(index(t, []int64{3}, 1, 1))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.ToFull(index(t, []int64{-1}, 1, 1))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestShapePrecondition(t *testing.T) {
	r, err := New([]int64{1}, UnknownExtra(), nil)
	require.NoError(t, err)

	flat := index(t, []int64{1, 1}, 2)
	_, err = r.ToUsed(flat)
	assert.ErrorIs(t, err, ErrShape)
	_, err = r.ToFull(flat)
	assert.ErrorIs(t, err, ErrShape)
	_, err = r.ToUsed(nil)
	assert.ErrorIs(t, err, ErrShape)

	// Higher-rank inputs keep their shape.
	red, err := r.ToUsed(index(t, []int64{1, 1, 1, 1}, 1, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, red.Shape())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"random", "random"},
		{"", "random"},
		{"extra", "extra"},
		{"17", "17"},
		{"-1", "-1"},
	}
	for _, tt := range tests {
		p, err := ParsePolicy(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.String())
	}

	_, err := ParsePolicy("sometimes")
	assert.Error(t, err)
}

func TestPolicy_YAML(t *testing.T) {
	var cfg struct {
		Unknown UnknownPolicy `yaml:"unknown"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("unknown: extra\n"), &cfg))
	assert.Equal(t, UnknownExtra(), cfg.Unknown)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "unknown: extra\n", string(out))
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	used := []int64{2, 5, 9, 14}

	for _, name := range []string{"used.npy", "used.npy.zst", "used.npy.lz4"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Save(ctx, store, name, used))

			r, err := Load(ctx, store, name, UnknownExtra(), nil)
			require.NoError(t, err)
			assert.Equal(t, used, r.Used())
			assert.Equal(t, 5, r.ReEmbed())
		})
	}

	_, err := Load(ctx, store, "missing.npy", UnknownExtra(), nil)
	assert.True(t, blobstore.IsNotFound(err))
}

func TestUsage(t *testing.T) {
	u := NewUsage(8)
	require.NoError(t, u.Observe([]int64{5, 1, 5}))
	require.NoError(t, u.Observe([]int64{7, 1}))
	assert.Equal(t, 3, u.Count())
	assert.Equal(t, []int64{1, 5, 7}, u.Used())
	assert.Equal(t, []int64{0, 2, 3, 4, 6}, u.Unused())

	assert.ErrorIs(t, u.Observe([]int64{8}), ErrIndexOutOfRange)

	used, err := UsedFromIndices([]int64{3, 3, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 3}, used)
}
