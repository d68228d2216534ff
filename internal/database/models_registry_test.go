package database

import (
	"testing"

	modelspkg "safeguard/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesChatTables(t *testing.T) {
	var room, attachment, capability bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Room:
			room = true
		case *modelspkg.Attachment:
			attachment = true
		case *modelspkg.UserCapability:
			capability = true
		}
	}
	require.True(t, room, "PersistentModels should include Room")
	require.True(t, attachment, "PersistentModels should include Attachment")
	require.True(t, capability, "PersistentModels should include UserCapability")
}
