package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/auth"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsBuffer     = 64
)

func (s *Server) newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin admits handshakes without an Origin header (non-browser
// clients), same-origin pages and the configured allowlist.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	_, ok := s.allowedOrigins[normalizeOrigin(origin)]
	if !ok {
		s.logger.Warn(r.Context(), "websocket origin rejected", "origin", origin)
	}
	return ok
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(o), "/"))
}

// tokenFromRequest reads the access token from the access_token header,
// a bearer Authorization header or the access_token query parameter.
// Browsers cannot set headers on a websocket handshake, hence the query.
func tokenFromRequest(r *http.Request) string {
	if t := r.Header.Get(common.AccessTokenHeaderName); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get(common.AccessTokenHeaderName)
}

func parseEvents(raw string) models.EventFilter {
	if raw == "" {
		return nil
	}
	var f models.EventFilter
	for _, p := range strings.Split(raw, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			f = append(f, models.EventType(p))
		}
	}
	return f
}

// watchChanges is GET /ws/changes?table=voice_memos&events=INSERT,UPDATE.
// Each change event is written as one JSON text frame.
func (s *Server) watchChanges(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromToken(tokenFromRequest(r), s.jwtSecret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	table := r.URL.Query().Get("table")
	if table != common.TableVoiceMemos && table != common.TableUserProfiles {
		http.Error(w, "unknown table", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	s.metrics.WSClients.Inc()
	defer s.metrics.WSClients.Dec()

	events := make(chan models.ChangeEvent, wsBuffer)
	sub, err := s.broker.Subscribe(table, parseEvents(r.URL.Query().Get("events")), func(ev models.ChangeEvent) {
		select {
		case events <- ev:
		default:
			s.logger.Warn(r.Context(), "websocket client is slow, dropping event", "user_id", userID, "event_id", ev.ID)
		}
	})
	if err != nil {
		s.logger.Error(r.Context(), "subscribe failed", "err", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer sub.Unsubscribe()

	s.logger.Info(r.Context(), "websocket client connected", "user_id", userID, "table", table)

	// The read side only exists to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			s.metrics.ChangeEvents.WithLabelValues(ev.Table, "ws").Inc()
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
