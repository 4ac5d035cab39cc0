package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBot_RequiresCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_ADMIN_ID", "12345")

	_, err := LoadBot()
	assert.ErrorIs(t, err, ErrMissingBotCredentials)

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_ID", "")
	_, err = LoadBot()
	assert.ErrorIs(t, err, ErrMissingBotCredentials)
}

func TestLoadBot_ParsesAdminAndDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_ID", "987654321")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("EVENTS_DRIVER", "sqs")
	t.Setenv("TELEGRAM_POLL_TIMEOUT", "")
	t.Setenv("SHOP_TIMEZONE", "UTC")

	cfg, err := LoadBot()
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), cfg.AdminID)
	assert.Equal(t, DriverDynamoDB, cfg.Store.Driver)
	assert.Equal(t, "orders", cfg.Store.OrdersTable)
	assert.Equal(t, EventsSQS, cfg.Events.Driver)
	assert.Equal(t, 60, cfg.PollTimeout)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoadBot_RejectsBadAdminID(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_ID", "admin")

	_, err := LoadBot()
	assert.ErrorContains(t, err, "TELEGRAM_ADMIN_ID")
}

func TestLoadAPI_TelegramConfigured(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("EVENTS_DRIVER", "")
	t.Setenv("SHOP_TIMEZONE", "")

	cfg, err := LoadAPI()
	require.NoError(t, err)
	assert.False(t, cfg.TelegramConfigured())

	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")
	cfg, err = LoadAPI()
	require.NoError(t, err)
	assert.True(t, cfg.TelegramConfigured())
	assert.Equal(t, EventsNone, cfg.Events.Driver)
}
