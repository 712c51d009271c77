package notifications

import (
	"errors"
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
	"gorm.io/gorm"
	"testing"
	"time"
)

func TestNotifier(t *testing.T) {
	bus := events.NewBus()
	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	out := make(chan interface{})
	notifFunc := func(i interface{}) error {
		out <- i
		return nil
	}

	sub, err := bus.Subscribe(&notifierStarted{})
	if err != nil {
		t.Fatal(err)
	}

	notifier := NewNotifier(bus, db, notifFunc)
	go notifier.Start()
	defer notifier.Stop()

	select {
	case <-sub.Out():
	case <-time.After(time.Second * 10):
		t.Fatal("Timed out waiting on channel")
	}

	offer := models.NewOffer(models.OfferSide{ColorDesc: "gold", Value: 10}, models.OfferSide{Value: 5000})

	tests := []struct {
		event        interface{}
		expectedType string
	}{
		{&events.OwnOfferRegistered{Offer: offer}, "OfferNotification"},
		{&events.OwnOfferCancelled{Offer: offer}, "OfferNotification"},
		{&events.ProposalInitiated{ProposalID: "1", Offer: offer, MyOffer: offer}, "ProposalNotification"},
		{&events.ProposalAccepted{ProposalID: "2", Offer: offer, MyOffer: offer}, "ProposalNotification"},
		{&events.TradeCompleted{ProposalID: "3", Role: events.RoleInitiator, Offer: offer, MyOffer: offer, Txid: "abc"}, "TradeNotification"},
		{&events.ProposalFailed{ProposalID: "4", Offer: offer, Err: errors.New("boom")}, "ProposalFailedNotification"},
	}

	for _, test := range tests {
		bus.Emit(test.event)

		select {
		case n1 := <-out:
			wrapper, ok := n1.(notificationWrapper)
			if !ok {
				t.Fatal("Invalid notification type")
			}
			typed, ok := wrapper.Notification.(events.TypedNotification)
			if !ok {
				t.Fatal("Notification is not typed")
			}
			if typed.Type() != test.expectedType {
				t.Errorf("Expected %s, got %s", test.expectedType, typed.Type())
			}
		case <-time.After(time.Second * 10):
			t.Fatal("Timed out waiting on channel")
		}
	}

	var records []models.NotificationRecord
	err = db.View(func(tx *gorm.DB) error {
		return tx.Order("timestamp asc").Find(&records).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(tests) {
		t.Errorf("Expected %d stored notifications, got %d", len(tests), len(records))
	}

	bus.Emit(&events.OffersUpdated{Offer: offer})
	select {
	case n1 := <-out:
		if _, ok := n1.(offersUpdatedWrapper); !ok {
			t.Fatal("Invalid notification type")
		}
	case <-time.After(time.Second * 10):
		t.Fatal("Timed out waiting on channel")
	}

	bus.Emit(&events.TransportError{Err: errors.New("relay down")})
	select {
	case n1 := <-out:
		wrapper, ok := n1.(transportErrorWrapper)
		if !ok {
			t.Fatal("Invalid notification type")
		}
		if wrapper.TransportError != "relay down" {
			t.Errorf("Expected relay down, got %s", wrapper.TransportError)
		}
	case <-time.After(time.Second * 10):
		t.Fatal("Timed out waiting on channel")
	}

	var count int64
	err = db.View(func(tx *gorm.DB) error {
		return tx.Model(&models.NotificationRecord{}).Count(&count).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(len(tests)) {
		t.Error("Status events should not be stored")
	}
}

func TestConvertToNotification(t *testing.T) {
	id, n := convertToNotification(&events.ProposalFailed{ProposalID: "x"})
	failed, ok := n.(*events.ProposalFailedNotification)
	if !ok {
		t.Fatalf("Expected ProposalFailedNotification, got %T", n)
	}
	if failed.ID != id || failed.OfferID != "" || failed.Error != "" {
		t.Error("Unexpected fields on notification without offer or error")
	}

	if _, n := convertToNotification(&events.OffersUpdated{}); n != nil {
		t.Error("Status events are not notifications")
	}
}
