package feed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/mselser95/range-arb/pkg/types"
	"go.uber.org/zap"
)

// Config holds feed configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	BufferSize            int
	Logger                *zap.Logger
}

// Manager maintains one websocket connection to the CLOB market channel and
// normalises its messages into TopOfBookUpdate events.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	conn       *websocket.Conn
	mu         sync.RWMutex
	subscribed map[string]bool

	// books merges partial price_change messages into a full top of book.
	books   map[string]*bookState
	booksMu sync.Mutex

	updates  chan *types.TopOfBookUpdate
	lastPong atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type bookState struct {
	bid, ask         float64
	bidSize, askSize float64
}

// New creates a feed manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		logger:     cfg.Logger,
		subscribed: make(map[string]bool),
		books:      make(map[string]*bookState),
		updates:    make(chan *types.TopOfBookUpdate, cfg.BufferSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start dials the endpoint and begins reading.
func (m *Manager) Start() error {
	m.logger.Info("feed-starting", zap.String("url", m.cfg.URL))

	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(2)
	go m.readLoop()
	go m.pingLoop()

	return nil
}

// Updates returns the normalised top-of-book stream.
func (m *Manager) Updates() <-chan *types.TopOfBookUpdate {
	return m.updates
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, m.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPong.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.lastPong.Store(time.Now().Unix())
	ConnectedGauge.Set(1)
	m.logger.Info("feed-connected")

	return nil
}

// Subscribe subscribes to the given asset ids, skipping known ones.
func (m *Manager) Subscribe(tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	m.mu.Lock()
	newTokens := make([]string, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		if !m.subscribed[tokenID] {
			newTokens = append(newTokens, tokenID)
			m.subscribed[tokenID] = true
		}
	}
	if len(newTokens) == 0 {
		m.mu.Unlock()
		return nil
	}

	initial := len(m.subscribed) == len(newTokens)
	var msg map[string]interface{}
	if initial {
		msg = map[string]interface{}{"assets_ids": newTokens, "type": "market"}
	} else {
		msg = map[string]interface{}{"assets_ids": newTokens, "operation": "subscribe"}
	}
	conn := m.conn
	total := len(m.subscribed)
	m.mu.Unlock()

	err := conn.WriteJSON(msg)
	if err != nil {
		m.mu.Lock()
		for _, tokenID := range newTokens {
			delete(m.subscribed, tokenID)
		}
		m.mu.Unlock()
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(total))
	m.logger.Info("feed-subscribed",
		zap.Int("new-count", len(newTokens)),
		zap.Int("total-count", total))

	return nil
}

func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.logger.Warn("feed-read-error", zap.Error(err))
			ConnectedGauge.Set(0)
			m.reconnect()
			continue
		}

		m.handleRaw(data)
	}
}

// handleRaw decodes one frame; the market channel batches events in arrays.
func (m *Manager) handleRaw(data []byte) {
	var batch []types.ClobMessage
	if err := json.Unmarshal(data, &batch); err != nil {
		var single types.ClobMessage
		if err = json.Unmarshal(data, &single); err != nil {
			m.logger.Debug("feed-undecodable-frame", zap.Error(err))
			return
		}
		batch = append(batch, single)
	}

	for i := range batch {
		m.handleMessage(&batch[i])
	}
}

func (m *Manager) handleMessage(msg *types.ClobMessage) {
	MessagesTotal.WithLabelValues(msg.EventType).Inc()

	update := m.normalize(msg)
	if update == nil {
		return
	}

	select {
	case m.updates <- update:
	default:
		UpdatesDroppedTotal.Inc()
		m.logger.Error("feed-update-channel-full",
			zap.String("asset-id", update.AssetID),
			zap.Int("buffer-size", cap(m.updates)))
	}
}

func (m *Manager) reconnect() {
	backoff := m.cfg.ReconnectInitialDelay
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(withJitter(backoff)):
		}

		ReconnectAttemptsTotal.Inc()
		err := m.connect(m.ctx)
		if err == nil {
			m.resubscribe()
			return
		}

		m.logger.Warn("feed-reconnect-failed", zap.Error(err), zap.Duration("backoff", backoff))
		backoff = time.Duration(float64(backoff) * m.cfg.ReconnectBackoffMult)
		if backoff > m.cfg.ReconnectMaxDelay {
			backoff = m.cfg.ReconnectMaxDelay
		}
	}
}

func (m *Manager) resubscribe() {
	m.mu.Lock()
	tokens := make([]string, 0, len(m.subscribed))
	for tokenID := range m.subscribed {
		tokens = append(tokens, tokenID)
	}
	conn := m.conn
	m.mu.Unlock()

	if len(tokens) == 0 {
		return
	}

	err := conn.WriteJSON(map[string]interface{}{"assets_ids": tokens, "type": "market"})
	if err != nil {
		m.logger.Error("feed-resubscribe-failed", zap.Error(err))
		return
	}
	m.logger.Info("feed-resubscribed", zap.Int("count", len(tokens)))
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.cfg.DialTimeout))
			if err != nil {
				m.logger.Warn("feed-ping-failed", zap.Error(err))
				continue
			}

			if time.Since(time.Unix(m.lastPong.Load(), 0)) > m.cfg.PongTimeout {
				m.logger.Warn("feed-pong-timeout")
				_ = conn.Close()
			}
		}
	}
}

// Close tears the connection down.
func (m *Manager) Close() error {
	m.cancel()

	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.mu.Unlock()

	m.wg.Wait()
	close(m.updates)
	m.logger.Info("feed-closed")
	return nil
}

func withJitter(d time.Duration) time.Duration {
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * jitter)
}
