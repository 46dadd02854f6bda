package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"hermes/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message - сообщение подписчикам проекта
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// newSubscriber кладёт initial в буфер до join: после join канал может закрыть Close
func newSubscriber(conn *websocket.Conn, initial Message) *subscriber {
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	if raw, err := json.Marshal(initial); err == nil {
		sub.send <- raw
	} else {
		logger.Error("Realtime: Не удалось сериализовать начальное сообщение", err, zap.String("type", initial.Type))
	}
	return sub
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub рассылает изменения досок подписчикам по websocket, по комнате на проект
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve переводит запрос в websocket, отправляет initial и держит соединение
// до отключения клиента
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID uuid.UUID, initial Message) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := newSubscriber(conn, initial)
	h.join(projectID, sub)
	defer h.leave(projectID, sub)

	go h.writeLoop(sub)
	h.readLoop(sub)
	return nil
}

// Broadcast отправляет сообщение всем подписчикам проекта. Медленный
// подписчик с заполненным буфером отключается.
func (h *Hub) Broadcast(projectID uuid.UUID, msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Realtime: Не удалось сериализовать сообщение", err, zap.String("type", msg.Type))
		return
	}

	h.mu.RLock()
	slow := []*subscriber{}
	for sub := range h.rooms[projectID] {
		select {
		case sub.send <- raw:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		logger.Warn("Realtime: Подписчик не успевает, отключаем", zap.String("project_id", projectID.String()))
		h.leave(projectID, sub)
	}
}

func (h *Hub) Subscribers(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

// Close отключает всех подписчиков
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[uuid.UUID]map[*subscriber]struct{})
	h.mu.Unlock()

	for _, room := range rooms {
		for sub := range room {
			sub.close()
		}
	}
}

func (h *Hub) join(projectID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*subscriber]struct{})
		h.rooms[projectID] = room
	}
	room[sub] = struct{}{}
	logger.Debug("Realtime: Подписчик подключён",
		zap.String("project_id", projectID.String()),
		zap.Int("subscribers", len(room)))
}

func (h *Hub) leave(projectID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	if room, ok := h.rooms[projectID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, projectID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

func (h *Hub) readLoop(sub *subscriber) {
	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// входящие сообщения клиента не используются
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Realtime: Соединение оборвано", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
