package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type namedEvent struct {
	Event string `json:"event"`
	URL   string `json:"url"`
}

func (e namedEvent) EventName() string { return e.Event }

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client, err := pubsub.NewClient(context.Background(), "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublisherPublishesJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "postings")
	require.NoError(t, err)

	pub := New(client)
	defer pub.Close()

	id, err := pub.Publish(ctx, "postings", namedEvent{Event: "posting.created", URL: "https://example.com/job"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "posting.created", msgs[0].Attributes["event"])
	var got namedEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, "https://example.com/job", got.URL)

	// A second publish reuses the cached topic handle.
	_, err = pub.Publish(ctx, "postings", map[string]int{"n": 2})
	require.NoError(t, err)
	require.Len(t, srv.Messages(), 2)
	require.Len(t, pub.topics, 1)
}

func TestPublisherErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := (&Publisher{}).Publish(ctx, "postings", 1)
	require.Error(t, err)

	client, _ := newTestClient(t)
	pub := New(client)
	defer pub.Close()

	_, err = pub.Publish(ctx, "", 1)
	require.Error(t, err)
	_, err = pub.Publish(ctx, "postings", make(chan int))
	require.ErrorContains(t, err, "marshal payload")
	_, err = pub.Publish(ctx, "missing-topic", 1)
	require.ErrorContains(t, err, "publish message")
}
