package security

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPublicAddr(t *testing.T) {
	t.Run("Should reject internal ranges", func(t *testing.T) {
		for _, ip := range []string{
			"127.0.0.1", "10.1.2.3", "172.16.0.9", "192.168.1.1",
			"169.254.169.254", "100.64.0.1", "0.0.0.0",
			"::1", "fe80::1", "fd00::1", "::ffff:10.0.0.1",
		} {
			assert.False(t, IsPublicAddr(netip.MustParseAddr(ip)), ip)
		}
	})

	t.Run("Should accept public addresses", func(t *testing.T) {
		for _, ip := range []string{"8.8.8.8", "142.250.72.14", "2606:4700::1111"} {
			assert.True(t, IsPublicAddr(netip.MustParseAddr(ip)), ip)
		}
	})
}

func TestPublicOnlyControl(t *testing.T) {
	t.Run("Should refuse the metadata endpoint", func(t *testing.T) {
		err := PublicOnlyControl("tcp4", "169.254.169.254:80", nil)
		assert.ErrorIs(t, err, ErrNonPublicAddress)
	})

	t.Run("Should allow a public address", func(t *testing.T) {
		assert.NoError(t, PublicOnlyControl("tcp4", "8.8.8.8:443", nil))
	})

	t.Run("Should refuse an address without a port", func(t *testing.T) {
		assert.ErrorIs(t, PublicOnlyControl("tcp", "8.8.8.8", nil), ErrNonPublicAddress)
	})
}
