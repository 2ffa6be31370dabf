package engine

import (
	"sync"

	"papertrader/internal/models"
)

// Hub раздаёт обновления состояния подписчикам. Публикация не блокируется:
// подписчику с переполненным буфером сообщение не доставляется,
// тик из-за медленного читателя не задерживается.
type Hub struct {
	mu   sync.Mutex
	subs map[chan models.StateUpdate]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan models.StateUpdate]struct{}{}}
}

// Subscribe возвращает канал обновлений и функцию отписки.
// Приветственный снапшот доставляется первым сообщением.
func (h *Hub) Subscribe(buf int, welcome models.StateUpdate) (<-chan models.StateUpdate, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan models.StateUpdate, buf)
	ch <- welcome

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	off := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; !ok {
			return
		}
		delete(h.subs, ch)
		close(ch)
	}
	return ch, off
}

func (h *Hub) Publish(update models.StateUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
