package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wmmessage "github.com/ThreeDotsLabs/watermill/message"

	boqmessage "github.com/boq-project/notify-dispatch/internal/domain/message"
	"github.com/boq-project/notify-dispatch/internal/domain/registry"
	"github.com/boq-project/notify-dispatch/internal/domain/types"
	"github.com/boq-project/notify-dispatch/internal/service"
)

type noopAvatars struct{}

func (noopAvatars) Resolve(sender boqmessage.SenderInfo, realmID types.RealmId, clientGravatar bool) *string {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(topic string, messages ...*wmmessage.Message) error { return nil }
func (noopPublisher) Close() error                                               { return nil }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	reg := registry.New()
	logger := slog.Default()
	emitter := service.NewNotificationEmitter(noopPublisher{}, logger)
	d := service.NewDispatcher(reg, noopAvatars{}, emitter, logger)
	return NewHandler(d, reg, logger)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestNotifyTornado_MalformedBodyReturnsBadRequest(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/notify_tornado", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotifyTornado_ValidCleanupQueueReturnsNoContent(t *testing.T) {
	h := newTestHandler(t)
	body := `{"event":{"type":"cleanup_queue","queue_id":"q1","user_id":7},"users":[]}`
	req := httptest.NewRequest(http.MethodPost, "/notify_tornado", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}
