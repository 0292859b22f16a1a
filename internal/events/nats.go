package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// DefaultSubjectPrefix subject 預設前綴
const DefaultSubjectPrefix = "arcade"

// Conn NATS 連線中本套件用到的部分，*nats.Conn 滿足此介面
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATS 以 core NATS 發布事件（at-most-once，不經 JetStream）
type NATS struct {
	conn   Conn
	prefix string
}

// Dial 連接 NATS 並建立發布者
func Dial(url, prefix string) (*NATS, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("arcade-rooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATS(conn, prefix), nil
}

// NewNATS 以既有連線建立發布者
func NewNATS(conn Conn, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: conn, prefix: prefix}
}

// Subject 事件對應的 subject：<prefix>.<type>
func (n *NATS) Subject(t Type) string {
	return n.prefix + "." + string(t)
}

// Publish 實現 Publisher
func (n *NATS) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode event")
	}
	if err := n.conn.Publish(n.Subject(ev.Type), data); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "publish event")
	}
	return nil
}

// Close 送出緩衝中的訊息後關閉連線
func (n *NATS) Close() error {
	return n.conn.Drain()
}
