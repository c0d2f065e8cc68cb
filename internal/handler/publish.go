package handler

import (
	"log/slog"

	"github.com/mwilkes/basket/internal/feed"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/store"
	"github.com/mwilkes/basket/internal/websocket"
)

// Publisher pushes row changes onto the change feed after they commit.
// Item events always go out; list events only for collaborative lists, and
// always scoped to the list's collaborators.
type Publisher struct {
	hub     *websocket.Hub
	collabs *store.CollaboratorStore
	logger  *slog.Logger
}

func NewPublisher(hub *websocket.Hub, collabs *store.CollaboratorStore, logger *slog.Logger) *Publisher {
	return &Publisher{hub: hub, collabs: collabs, logger: logger}
}

func (p *Publisher) recipients(listID int64) []int64 {
	ids, err := p.collabs.ListUserIDs(listID)
	if err != nil {
		p.logger.Error("feed recipients", "list_id", listID, "error", err)
		return nil
	}
	return ids
}

func (p *Publisher) listChanged(op feed.Op, list *model.List) {
	if !list.IsCollaborative {
		return
	}
	p.hub.Publish(p.recipients(list.ID), feed.ListEvent{Op: op, ID: list.ID, List: list})
}

// listChangedTo publishes to an explicit audience, for transitions where the
// collaborative flag may have just flipped off and the live recipient set no
// longer includes everyone who should hear.
func (p *Publisher) listChangedTo(recipients []int64, list *model.List) {
	p.hub.Publish(recipients, feed.ListEvent{Op: feed.OpUpdate, ID: list.ID, List: list})
}

// listDeleted takes the recipient set captured before the delete, since the
// collaborator rows cascade away with the list.
func (p *Publisher) listDeleted(listID int64, recipients []int64) {
	p.hub.Publish(recipients, feed.ListEvent{Op: feed.OpDelete, ID: listID})
}

func (p *Publisher) itemChanged(op feed.Op, item *model.Item) {
	p.hub.Publish(p.recipients(item.ListID), feed.ItemEvent{Op: op, ID: item.ID, ListID: item.ListID, Item: item})
}

func (p *Publisher) itemDeleted(itemID, listID int64) {
	p.hub.Publish(p.recipients(listID), feed.ItemEvent{Op: feed.OpDelete, ID: itemID, ListID: listID})
}
