package termset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Set_WithAndHas(t *testing.T) {
	testCases := []struct {
		name   string
		build  func() Set
		probe  ID
		expect bool
	}{
		{
			name:   "added member is present",
			build:  func() Set { return Set(0).With(5) },
			probe:  5,
			expect: true,
		},
		{
			name:   "non-member is absent",
			build:  func() Set { return Set(0).With(5) },
			probe:  6,
			expect: false,
		},
		{
			name:   "removed member is absent",
			build:  func() Set { return Set(0).With(5).Without(5) },
			probe:  5,
			expect: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			s := tc.build()

			assert.Equal(tc.expect, s.Has(tc.probe))
		})
	}
}

func Test_Set_Epsilon(t *testing.T) {
	assert := assert.New(t)

	s := Set(0).WithEpsilon()

	assert.True(s.HasEpsilon())
	assert.False(s.Has(Epsilon), "Epsilon membership must not leak into Has()/Members() as an ordinary terminal id")
	assert.True(s.WithoutEpsilon().Empty())
}

func Test_Set_UnionIntersect(t *testing.T) {
	assert := assert.New(t)

	a := Set(0).With(1).With(2)
	b := Set(0).With(2).With(3)

	union := a.Union(b)
	assert.True(union.Has(1))
	assert.True(union.Has(2))
	assert.True(union.Has(3))

	inter := a.Intersect(b)
	assert.False(inter.Has(1))
	assert.True(inter.Has(2))
	assert.False(inter.Has(3))
}

func Test_Set_MembersAscending(t *testing.T) {
	assert := assert.New(t)

	s := Set(0).With(5).With(1).With(3)

	assert.Equal([]ID{1, 3, 5}, s.Members())
	assert.Equal(3, s.Count())
}
