package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: " orders ", PaymentsTopic: "", SupportTopic: "support"})
	assert.Equal(t, []string{"orders", "support"}, names)
}

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "shop-prod"}
	assert.Equal(t, "projects/shop-prod/topics/orders", c.topicResourceName("orders"))
	assert.Equal(t, "projects/other/topics/x", c.topicResourceName("projects/other/topics/x"))
	assert.Empty(t, c.topicResourceName("  "))

	var nilClient *Client
	assert.Empty(t, nilClient.topicResourceName("orders"))
	assert.Nil(t, nilClient.Publisher("orders"))
}
