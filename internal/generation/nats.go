package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher NATS 发布接口，*nats.Conn 满足该接口
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier 把事件以 JSON 发布到 <Subject>.<网站 ID>
type NATSNotifier struct {
	Conn    Publisher
	Subject string
}

// DialNATS 连接 NATS 服务器，返回通知器与关闭函数（关闭前会 flush 未发送的消息）
func DialNATS(url, subject string) (*NATSNotifier, func(), error) {
	conn, err := nats.Connect(url,
		nats.Name("sitedeploy"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	closeFn := func() {
		_ = conn.FlushTimeout(5 * time.Second)
		conn.Close()
	}
	return &NATSNotifier{Conn: conn, Subject: subject}, closeFn, nil
}

// SubjectFor 返回某个网站的事件主题
func (n *NATSNotifier) SubjectFor(websiteID string) string {
	return n.Subject + "." + websiteID
}

func (n *NATSNotifier) Notify(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.Conn.Publish(n.SubjectFor(evt.WebsiteID), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
