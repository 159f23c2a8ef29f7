package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/models"
)

// ItemReader reads a single item
type ItemReader interface {
	GetByID(ctx context.Context, id string) (*models.Item, error)
}

// ReservationReader reads the reservation of an item
type ReservationReader interface {
	GetReservationByItem(ctx context.Context, itemID string) (*models.Reservation, error)
}

// ItemHandler handles the /item command
type ItemHandler struct {
	items        ItemReader
	reservations ReservationReader
	logger       *logrus.Logger
}

func NewItemHandler(items ItemReader, reservations ReservationReader, logger *logrus.Logger) *ItemHandler {
	return &ItemHandler{items: items, reservations: reservations, logger: logger}
}

// Handle processes the /item command. Operators see every row, so the
// lookup runs as the service actor.
func (h *ItemHandler) Handle(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "Usage: /item <id>", nil
	}
	ctx = actor.WithActor(ctx, actor.Service())

	item, err := h.items.GetByID(ctx, args[0])
	if err != nil {
		return "", fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		h.logger.WithField("item_id", args[0]).Debug("Item lookup found nothing")
		return fmt.Sprintf("Item %s not found.", args[0]), nil
	}

	res, err := h.reservations.GetReservationByItem(ctx, item.ID)
	if err != nil {
		return "", fmt.Errorf("get reservation: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 %s\nid: %s\nwishlist: %s\nstatus: %s\n", item.Title, item.ID, item.WishlistID, item.Status)
	switch {
	case res != nil:
		fmt.Fprintf(&b, "reservation: %s by %s at %s", res.ID, res.ReserverName, res.CreatedAt.Format("2006-01-02 15:04"))
	default:
		b.WriteString("reservation: none")
	}
	if drifted(item, res) {
		b.WriteString("\n⚠️ status and reservation disagree, /reconcile will repair it")
	}
	return b.String(), nil
}

func drifted(item *models.Item, res *models.Reservation) bool {
	if item.Status == models.ItemStatusReserved {
		return res == nil
	}
	return item.Status == models.ItemStatusAvailable && res != nil
}
