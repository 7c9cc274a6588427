package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/profile"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	deadline bool
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp091.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	_, ok := ctx.Deadline()
	c.published = append(c.published, published{exchange, key, msg, ok})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func testEntry(dir entry.Direction, cat category.Category, amount int64) *entry.Entry {
	return &entry.Entry{
		ID: id.NewEntryID(), MemberRef: "m1", Sequence: 4,
		Direction: dir, Category: cat, Amount: amount, BalanceAfter: 40,
		OccurredAt: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewDeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := New(ch, "ecoseed.events"); err != nil {
		t.Fatal(err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "ecoseed.events:topic" {
		t.Errorf("declared = %v, want [ecoseed.events:topic]", ch.declared)
	}
}

func TestPublishRoutingKeys(t *testing.T) {
	ch := &fakeChannel{}
	p, err := New(ch, "ecoseed.events")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	pr := profile.New("m1", "")
	pr.SecondaryBalance = 7

	_ = p.OnSeedsEarned(ctx, testEntry(entry.DirectionEarn, category.Walking, 10), pr)
	_ = p.OnSeedsSpent(ctx, testEntry(entry.DirectionUse, category.EnvironmentDonation, -3), pr)
	_ = p.OnSeedsConverted(ctx, testEntry(entry.DirectionConvert, category.HanaMoneyConversion, -7), pr)

	wantKeys := []string{KeySeedsEarned, KeySeedsSpent, KeySeedsConverted}
	if len(ch.published) != len(wantKeys) {
		t.Fatalf("published = %d, want %d", len(ch.published), len(wantKeys))
	}
	for i, want := range wantKeys {
		got := ch.published[i]
		if got.key != want {
			t.Errorf("key[%d] = %q, want %q", i, got.key, want)
		}
		if got.exchange != "ecoseed.events" {
			t.Errorf("exchange[%d] = %q, want ecoseed.events", i, got.exchange)
		}
		if got.msg.DeliveryMode != amqp091.Persistent {
			t.Errorf("delivery mode[%d] = %d, want persistent", i, got.msg.DeliveryMode)
		}
		if _, err := uuid.Parse(got.msg.MessageId); err != nil {
			t.Errorf("message id[%d] = %q, not a uuid", i, got.msg.MessageId)
		}
		if !got.deadline {
			t.Errorf("publish[%d] ran without a deadline", i)
		}
	}

	msg, err := PostingMessageFromJSON(ch.published[2].msg.Body)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Amount != -7 || msg.SecondaryBalance != 7 || msg.Category != "HANA_MONEY_CONVERSION" {
		t.Errorf("message = %+v", msg)
	}
}

func TestPublishError(t *testing.T) {
	ch := &fakeChannel{}
	p, err := New(ch, "x")
	if err != nil {
		t.Fatal(err)
	}
	ch.publishErr = errors.New("channel closed")

	err = p.OnSeedsEarned(context.Background(), testEntry(entry.DirectionEarn, category.Walking, 1), nil)
	if err == nil {
		t.Fatal("OnSeedsEarned = nil, want error")
	}
}

func TestShutdownClosesChannel(t *testing.T) {
	ch := &fakeChannel{}
	p, err := New(ch, "x")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.OnShutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ch.closed {
		t.Error("channel not closed on shutdown")
	}
}
