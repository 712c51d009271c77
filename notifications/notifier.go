package notifications

import (
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
	"github.com/op/go-logging"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("NOTF")

type notificationWrapper struct {
	Notification interface{} `json:"notification"`
}

type offersUpdatedWrapper struct {
	OffersUpdated interface{} `json:"offersUpdated"`
}

type transportErrorWrapper struct {
	TransportError string `json:"transportError"`
}

// notifierStarted is emitted once the notifier is subscribed.
type notifierStarted struct{}

// Notifier manages translating events into notifications and
// sending them to websockets.
type Notifier struct {
	notifyFunc func(interface{}) error
	bus        events.Bus
	db         repo.Database
	shutdown   chan struct{}
}

// NewNotifier returns a new notifer.
func NewNotifier(bus events.Bus, db repo.Database, notifyFunc func(interface{}) error) *Notifier {
	return &Notifier{
		bus:        bus,
		db:         db,
		notifyFunc: notifyFunc,
		shutdown:   make(chan struct{}),
	}
}

// Start will start up the notifier. This should use it's own goroutine.
func (n *Notifier) Start() {
	notifications := []interface{}{
		&events.OwnOfferRegistered{},
		&events.OwnOfferCancelled{},
		&events.ProposalInitiated{},
		&events.ProposalAccepted{},
		&events.TradeCompleted{},
		&events.ProposalFailed{},
	}

	notificationSub, err := n.bus.Subscribe(notifications)
	if err != nil {
		log.Errorf("Error subscribing to events: %s", err)
		return
	}
	defer notificationSub.Close()

	// Status events are pushed to the websocket but not stored.
	status := []interface{}{
		&events.OffersUpdated{},
		&events.TransportError{},
	}

	statusSub, err := n.bus.Subscribe(status)
	if err != nil {
		log.Errorf("Error subscribing to events: %s", err)
		return
	}
	defer statusSub.Close()

	n.bus.Emit(&notifierStarted{})

	for {
		select {
		case event := <-notificationSub.Out():
			id, notif := convertToNotification(event)
			if notif == nil {
				continue
			}

			record, err := models.NewNotificationRecord(notif.Type(), notif)
			if err != nil {
				log.Errorf("Error saving notification to the database: %s", err)
				continue
			}
			record.ID = id

			err = n.db.Update(func(tx *gorm.DB) error {
				return tx.Save(record).Error
			})
			if err != nil {
				log.Errorf("Error saving notification to the database: %s", err)
				continue
			}

			if err := n.notifyFunc(notificationWrapper{notif}); err != nil {
				log.Errorf("Error sending notification: %s", err)
			}
		case event := <-statusSub.Out():
			var i interface{}
			switch e := event.(type) {
			case *events.OffersUpdated:
				i = offersUpdatedWrapper{e}
			case *events.TransportError:
				i = transportErrorWrapper{e.Err.Error()}
			}

			if err := n.notifyFunc(i); err != nil {
				log.Errorf("Error sending notification: %s", err)
			}
		case <-n.shutdown:
			return
		}
	}
}

// Stop shuts down the notifier.
func (n *Notifier) Stop() {
	close(n.shutdown)
}

func convertToNotification(event interface{}) (string, events.TypedNotification) {
	id := models.NewNotificationID()

	switch e := event.(type) {
	case *events.OwnOfferRegistered:
		return id, &events.OfferNotification{
			ID:      id,
			OfferID: e.Offer.ID.String(),
			Give:    e.Offer.A,
			Want:    e.Offer.B,
			Status:  "registered",
		}
	case *events.OwnOfferCancelled:
		return id, &events.OfferNotification{
			ID:      id,
			OfferID: e.Offer.ID.String(),
			Give:    e.Offer.A,
			Want:    e.Offer.B,
			Status:  "cancelled",
		}
	case *events.ProposalInitiated:
		return id, &events.ProposalNotification{
			ID:         id,
			ProposalID: e.ProposalID,
			OfferID:    e.Offer.ID.String(),
			Give:       e.MyOffer.A,
			Want:       e.MyOffer.B,
			Role:       events.RoleInitiator,
		}
	case *events.ProposalAccepted:
		return id, &events.ProposalNotification{
			ID:         id,
			ProposalID: e.ProposalID,
			OfferID:    e.MyOffer.ID.String(),
			Give:       e.MyOffer.A,
			Want:       e.MyOffer.B,
			Role:       events.RoleResponder,
		}
	case *events.TradeCompleted:
		return id, &events.TradeNotification{
			ID:         id,
			ProposalID: e.ProposalID,
			Role:       e.Role,
			Give:       e.MyOffer.A,
			Want:       e.MyOffer.B,
			Txid:       e.Txid,
		}
	case *events.ProposalFailed:
		n := &events.ProposalFailedNotification{
			ID:         id,
			ProposalID: e.ProposalID,
		}
		if e.Offer != nil {
			n.OfferID = e.Offer.ID.String()
		}
		if e.Err != nil {
			n.Error = e.Err.Error()
		}
		return id, n
	}
	return id, nil
}
