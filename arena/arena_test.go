package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNode_SequentialIDs(t *testing.T) {
	a := New[string]()
	for i := 0; i < 10; i++ {
		id := a.CreateNode("n")
		assert.Equal(t, NodeID(i), id)
	}
	assert.Equal(t, 10, a.Len())
}

func TestCreateNode_EarlierIDsStayValid(t *testing.T) {
	a := New[int]()
	first := a.CreateNode(42)
	for i := 0; i < 1000; i++ {
		a.CreateNode(i)
	}
	assert.Equal(t, 42, *a.Data(first))
}

func TestNode_NewNodeHasNoParentOrChildren(t *testing.T) {
	a := New[int]()
	id := a.CreateNode(1)
	n := a.Node(id)
	_, ok := n.Parent()
	assert.False(t, ok)
	assert.Empty(t, n.Children())
}

func TestData_MutableInPlace(t *testing.T) {
	a := New[int]()
	id := a.CreateNode(1)
	*a.Data(id) = 7
	assert.Equal(t, 7, a.Node(id).Data)
}

func TestNode_OutOfRangePanics(t *testing.T) {
	a := New[int]()
	a.CreateNode(0)
	assert.Panics(t, func() { a.Node(1) })
	assert.Panics(t, func() { a.Node(-1) })
	assert.Panics(t, func() { a.Data(5) })
	assert.Panics(t, func() { a.Walk(3) })
}

func TestSetParentAddChild_Independent(t *testing.T) {
	a := New[string]()
	p := a.CreateNode("p")
	c := a.CreateNode("c")

	a.SetParent(c, p)
	assert.Empty(t, a.Node(p).Children(), "SetParent must not touch the parent's children")
	require.Error(t, a.Validate())

	a.AddChild(p, c)
	assert.Equal(t, []NodeID{c}, a.Node(p).Children())
	require.NoError(t, a.Validate())
}

func TestSetParent_UnknownIDPanics(t *testing.T) {
	a := New[string]()
	c := a.CreateNode("c")
	assert.Panics(t, func() { a.SetParent(c, 4) })
	assert.Panics(t, func() { a.AddChild(c, 4) })
}

func TestLink(t *testing.T) {
	a := New[string]()
	r := a.CreateNode("r")
	x := a.CreateNode("x")
	y := a.CreateNode("y")

	require.NoError(t, a.Link(r, x))
	require.NoError(t, a.Link(r, y))

	parent, ok := a.Node(x).Parent()
	require.True(t, ok)
	assert.Equal(t, r, parent)
	assert.Equal(t, []NodeID{x, y}, a.Node(r).Children())
	assert.Equal(t, []NodeID{r}, a.Roots())
	require.NoError(t, a.Validate())
}

func TestLink_Rejects(t *testing.T) {
	a := New[string]()
	r := a.CreateNode("r")
	x := a.CreateNode("x")
	y := a.CreateNode("y")
	require.NoError(t, a.Link(r, x))
	require.NoError(t, a.Link(x, y))

	tests := []struct {
		name          string
		parent, child NodeID
	}{
		{"unknown parent", 9, x},
		{"unknown child", r, 9},
		{"self", y, y},
		{"second parent", y, x},
		{"cycle", y, r},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Link(tt.parent, tt.child)
			require.ErrorIs(t, err, ErrInvalidLink)
		})
	}

	assert.Equal(t, []NodeID{x}, a.Node(r).Children())
	assert.Equal(t, []NodeID{y}, a.Node(x).Children())
	assert.Empty(t, a.Node(y).Children())
	require.NoError(t, a.Validate())
}

func TestValidate_ChildListedWithoutParent(t *testing.T) {
	a := New[int]()
	p := a.CreateNode(0)
	c := a.CreateNode(1)
	a.AddChild(p, c)
	require.Error(t, a.Validate())
}

func TestValidate_DuplicateChild(t *testing.T) {
	a := New[int]()
	p := a.CreateNode(0)
	c := a.CreateNode(1)
	require.NoError(t, a.Link(p, c))
	a.AddChild(p, c)
	require.Error(t, a.Validate())
}

func TestValidate_Cycle(t *testing.T) {
	a := New[int]()
	x := a.CreateNode(0)
	y := a.CreateNode(1)
	a.SetParent(x, y)
	a.AddChild(y, x)
	a.SetParent(y, x)
	a.AddChild(x, y)
	require.Error(t, a.Validate())
}
