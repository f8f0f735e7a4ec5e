package sender

import (
	"context"
	"net/http"
	"sync"
	"time"

	"livebets/line_tracker/internal/entity"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// Sender pushes every processed batch to the connected websocket clients.
type Sender struct {
	clientConns    map[*websocket.Conn]bool
	clientConnsMux sync.Mutex
	sendChan       <-chan entity.Batch
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
}

func New(sendChan <-chan entity.Batch, logger *zerolog.Logger) *Sender {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &Sender{
		clientConns: make(map[*websocket.Conn]bool),
		sendChan:    sendChan,
		upgrader:    upgrader,
		logger:      logger,
	}
}

func (s *Sender) SendingToClients(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case batch, ok := <-s.sendChan:
			if !ok {
				s.closeAll()
				return
			}

			byteMsg, err := entity.Marshal(batch)
			if err != nil {
				s.logger.Error().Err(err).Msg("[Sender] error encode batch")
				continue
			}
			s.broadcast(byteMsg)

		case <-ctx.Done():
			s.closeAll()
			return
		}
	}
}

func (s *Sender) HandleClientConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("[Sender] error upgrade connection to websocket")
		return
	}

	s.clientConnsMux.Lock()
	s.clientConns[conn] = true
	s.clientConnsMux.Unlock()

	s.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	go func() {
		defer func() {
			s.remove(conn)
			s.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("client disconnected")
		}()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Error().Err(err).Msg("[Sender] error read from client")
				}
				return
			}
		}
	}()
}

func (s *Sender) ClientCount() int {
	s.clientConnsMux.Lock()
	defer s.clientConnsMux.Unlock()
	return len(s.clientConns)
}

func (s *Sender) broadcast(byteMsg []byte) {
	s.clientConnsMux.Lock()
	defer s.clientConnsMux.Unlock()

	for conn := range s.clientConns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, byteMsg); err != nil {
			s.logger.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("[Sender] error send to client")
			conn.Close()
			delete(s.clientConns, conn)
		}
	}
}

func (s *Sender) remove(conn *websocket.Conn) {
	s.clientConnsMux.Lock()
	delete(s.clientConns, conn)
	s.clientConnsMux.Unlock()
	conn.Close()
}

func (s *Sender) closeAll() {
	s.clientConnsMux.Lock()
	defer s.clientConnsMux.Unlock()
	for conn := range s.clientConns {
		conn.Close()
		delete(s.clientConns, conn)
	}
}
