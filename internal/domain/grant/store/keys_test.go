package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"grant-store/internal/domain/grant/model"
)

func TestPrefixKeysNormalizesOnce(t *testing.T) {
	assert.Equal(t, "", NewPrefixKeys("").Prefix())
	assert.Equal(t, "ids:", NewPrefixKeys("ids").Prefix())
	assert.Equal(t, "ids:", NewPrefixKeys("ids:").Prefix())
}

func TestPrefixKeys(t *testing.T) {
	keys := NewPrefixKeys("ids")

	assert.Equal(t, "ids:k1", keys.Grant("k1"))
	assert.Equal(t, "ids:u1", keys.Subject("u1"))
	assert.Equal(t, "ids:u1:c1", keys.Client("u1", "c1"))
	assert.Equal(t, "ids:u1:c1:refresh_token", keys.Type("u1", "c1", "refresh_token"))
	assert.Equal(t, "ids:u1:c1:s1", keys.Session("u1", "c1", "s1"))
}

func TestIndexFor(t *testing.T) {
	keys := NewPrefixKeys("")

	tests := []struct {
		name   string
		filter model.Filter
		want   string
	}{
		{"subject only", model.Filter{SubjectID: "u"}, "u"},
		{"client", model.Filter{SubjectID: "u", ClientID: "c"}, "u:c"},
		{"client session", model.Filter{SubjectID: "u", ClientID: "c", SessionID: "s"}, "u:c:s"},
		{"client type", model.Filter{SubjectID: "u", ClientID: "c", Type: "t"}, "u:c:t"},
		{"client session type", model.Filter{SubjectID: "u", ClientID: "c", SessionID: "s", Type: "t"}, "u:c:t"},
		{"type without client", model.Filter{SubjectID: "u", Type: "t"}, "u"},
		{"session without client", model.Filter{SubjectID: "u", SessionID: "s"}, "u"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IndexFor(keys, tt.filter))
		})
	}
}
