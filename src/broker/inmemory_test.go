package broker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "test-topic"
	key := "test-key"
	value := []byte("test message")

	// Subscribe before publishing
	msgChan, err := broker.Subscribe(ctx, topic, "test-group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish(ctx, topic, key, value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-msgChan:
		if msg.Topic != topic {
			t.Errorf("Expected topic %s, got %s", topic, msg.Topic)
		}
		if msg.Key != key {
			t.Errorf("Expected key %s, got %s", key, msg.Key)
		}
		if string(msg.Value) != string(value) {
			t.Errorf("Expected value %s, got %s", string(value), string(msg.Value))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

// TestTopicIsolation verifies subscribers on different topics do not receive wrong messages.
func TestInMemoryBroker_TopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	chA, err := broker.Subscribe(ctx, "topic-a", "g")
	if err != nil {
		t.Fatalf("Subscribe to topic-a failed: %v", err)
	}
	chB, err := broker.Subscribe(ctx, "topic-b", "g")
	if err != nil {
		t.Fatalf("Subscribe to topic-b failed: %v", err)
	}

	if err := broker.Publish(ctx, "topic-a", "", []byte("for a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-chA:
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message on topic-a")
	}

	select {
	case msg := <-chB:
		t.Errorf("Topic B should not receive message, but got: %q", msg.Value)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInMemoryBroker_GroupsEachReceive(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	sub1, _ := broker.Subscribe(ctx, "topic", "group1")
	sub2, _ := broker.Subscribe(ctx, "topic", "group2")

	if err := broker.Publish(ctx, "topic", "key", []byte("broadcast")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, sub := range []<-chan Message{sub1, sub2} {
		select {
		case msg := <-sub:
			if string(msg.Value) != "broadcast" {
				t.Errorf("Subscriber %d: got %s", i+1, msg.Value)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i+1)
		}
	}
}

func TestInMemoryBroker_GroupMembersShare(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	sub1, _ := broker.Subscribe(ctx, "topic", "workers")
	sub2, _ := broker.Subscribe(ctx, "topic", "workers")

	for i := 0; i < 4; i++ {
		if err := broker.Publish(ctx, "topic", "", []byte(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	if len(sub1) != 2 || len(sub2) != 2 {
		t.Errorf("Expected messages split 2/2, got %d/%d", len(sub1), len(sub2))
	}
}

func TestInMemoryBroker_OffsetsIncrease(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	sub, _ := broker.Subscribe(ctx, "topic", "g")
	broker.Publish(ctx, "topic", "", []byte("a"))
	broker.Publish(ctx, "topic", "", []byte("b"))

	first, second := <-sub, <-sub
	if first.Offset != 0 || second.Offset != 1 {
		t.Errorf("Expected offsets 0,1 got %d,%d", first.Offset, second.Offset)
	}
}

func TestInMemoryBroker_ContextCancelClosesChannel(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := broker.Subscribe(ctx, "topic", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-sub:
		if ok {
			t.Error("Expected channel to be closed")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Channel not closed after context cancel")
	}

	// Publishing afterwards must not block or panic.
	if err := broker.Publish(context.Background(), "topic", "", []byte("late")); err != nil {
		t.Errorf("Publish after unsubscribe failed: %v", err)
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	sub, _ := broker.Subscribe(context.Background(), "test", "group")
	broker.Close()

	if _, ok := <-sub; ok {
		t.Error("Expected subscriber channel to be closed")
	}

	ctx := context.Background()
	if err := broker.Publish(ctx, "test", "key", []byte("value")); err == nil {
		t.Error("Expected error when publishing to closed broker")
	}
	if _, err := broker.Subscribe(ctx, "test", "group"); err == nil {
		t.Error("Expected error when subscribing to closed broker")
	}
	if err := broker.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}
}

func TestInMemoryBroker_ConcurrentPublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			sub, err := broker.Subscribe(ctx, "topic", fmt.Sprintf("g%d", i))
			if err != nil {
				t.Errorf("Subscribe failed: %v", err)
				return
			}
			go func() {
				for range sub {
				}
			}()
		}(i)
		go func(i int) {
			defer wg.Done()
			if err := broker.Publish(ctx, "topic", "", []byte(fmt.Sprintf("msg-%d", i))); err != nil {
				t.Errorf("Publish failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}
