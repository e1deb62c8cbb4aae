package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/eshoplite-backend/pkg/config"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errClosed            = errors.New("pubsub client not initialized")
)

// Client sends messages to the topics the payment events are routed to.
// Publishers are created lazily and reused per topic.
type Client struct {
	raw     *gcppubsub.Client
	project string
	topics  []string

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

// NewClient dials Pub/Sub and fails when a configured topic is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topics := configuredTopics(cfg)
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	raw, err := gcppubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		raw:        raw,
		project:    project,
		topics:     topics,
		publishers: map[string]*gcppubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", strings.Join(topics, ",")), "pubsub client initialized")
	}
	return c, nil
}

// Send publishes one message and waits for the server-assigned id.
func (c *Client) Send(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	pub, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	return pub.Publish(ctx, &gcppubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
}

func (c *Client) publisher(topic string) (*gcppubsub.Publisher, error) {
	if c == nil || c.raw == nil {
		return nil, errClosed
	}
	name := topicPath(c.project, topic)
	if name == "" {
		return nil, fmt.Errorf("topic %q cannot be resolved", topic)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[name]; ok {
		return pub, nil
	}
	pub := c.raw.Publisher(name)
	c.publishers[name] = pub
	return pub, nil
}

// Ping checks that every configured topic still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errClosed
	}
	for _, topic := range c.topics {
		_, err := c.raw.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topicPath(c.project, topic)})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %q does not exist", topic)
		case err != nil:
			return fmt.Errorf("checking topic %q: %w", topic, err)
		}
	}
	return nil
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	c.publishers = map[string]*gcppubsub.Publisher{}
	c.mu.Unlock()
	return c.raw.Close()
}

func configuredTopics(cfg config.PubSubConfig) []string {
	var topics []string
	if t := strings.TrimSpace(cfg.PaymentsTopic); t != "" {
		topics = append(topics, t)
	}
	return topics
}

// topicPath accepts a short topic id or a full projects/<p>/topics/<id> name.
func topicPath(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	if project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
