package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeLinks(t *testing.T) {
	links, err := DecodeLinks(`[{"condition":"Approve","next":"F9"},{"next":"G10"}]`)
	require.NoError(t, err)
	require.Equal(t, []Link{{Condition: "Approve", Next: "F9"}, {Next: "G10"}}, links)

	links, err = DecodeLinks("  ")
	require.NoError(t, err)
	require.Empty(t, links)
}

func TestDecodeLinksMalformed(t *testing.T) {
	links, err := DecodeLinks(`{"next":`)
	require.ErrorIs(t, err, ErrMalformedLinks)
	require.Nil(t, links)
}

func TestEncodeLinksKeepsOrder(t *testing.T) {
	raw, err := EncodeLinks([]Link{{Next: "C5"}, {Condition: "Escalate", Next: "F4"}})
	require.NoError(t, err)
	require.JSONEq(t, `[{"next":"C5"},{"condition":"Escalate","next":"F4"}]`, raw)

	raw, err = EncodeLinks(nil)
	require.NoError(t, err)
	require.Equal(t, "", raw)
}
