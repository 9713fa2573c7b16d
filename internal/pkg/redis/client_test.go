package redis

import "testing"

func TestNewClientRequiresAddress(t *testing.T) {
	for _, addrs := range []string{"", " , ,"} {
		if _, err := NewClient(addrs, ""); err == nil {
			t.Errorf("NewClient(%q) should fail", addrs)
		}
	}
}
