package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttributes(t *testing.T) {
	got := Attributes(" type ", "order.created", "orderId", " ord_1 ", "status", "", "", "ignored", "dangling")
	require.Equal(t, map[string]string{"type": "order.created", "orderId": "ord_1"}, got)
}

func TestAttributesEmpty(t *testing.T) {
	require.Nil(t, Attributes())
	require.Nil(t, Attributes("status", "  "))
}
