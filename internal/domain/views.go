package domain

// SeatView is the publicly visible slice of a seat. It never carries cards;
// only the seat's owner sees its hand, through PrivateView.
type SeatView struct {
	PlayerID     string  `json:"player_id"`
	DisplayName  string  `json:"display_name"`
	Order        int     `json:"order"`
	Bet          int64   `json:"bet"`
	BetConfirmed bool    `json:"bet_confirmed"`
	Done         bool    `json:"done"`
	Bust         bool    `json:"bust"`
	Outcome      Outcome `json:"outcome,omitempty"`
	Payout       int64   `json:"payout"`
}

// DealerView shows the dealer's up-card until the hole card is revealed at
// Results, after which the full hand and total become visible.
type DealerView struct {
	UpCards  []Card `json:"up_cards"`
	Hand     []Card `json:"hand,omitempty"`
	Total    int    `json:"total,omitempty"`
	Revealed bool   `json:"revealed"`
}

// PublicView is the state every shell member may see.
type PublicView struct {
	SessionID    string     `json:"session_id"`
	Kind         string     `json:"kind"`
	Version      uint64     `json:"version"`
	Stage        Stage      `json:"stage"`
	HostPlayerID string     `json:"host_player_id"`
	TurnPlayerID string     `json:"turn_player_id,omitempty"`
	Dealer       DealerView `json:"dealer"`
	Seats        []SeatView `json:"seats"`
}

// PrivateView is the per-viewer state delivered point-to-point. Only the host
// additionally sees the dealer's hole card.
type PrivateView struct {
	SessionID  string `json:"session_id"`
	Version    uint64 `json:"version"`
	PlayerID   string `json:"player_id"`
	Hand       []Card `json:"hand"`
	Total      int    `json:"total"`
	YourTurn   bool   `json:"your_turn"`
	Bust       bool   `json:"bust"`
	DealerHole *Card  `json:"dealer_hole,omitempty"`
}

// PublicViewOf derives the group-visible view from session state. It is a
// pure function of the state and is recomputed from scratch on every
// mutation; views are never stored on the session.
func PublicViewOf(s *Session) *PublicView {
	view := &PublicView{
		SessionID:    s.ID,
		Kind:         s.Kind,
		Version:      s.Version,
		Stage:        s.Stage,
		HostPlayerID: s.HostPlayerID,
		TurnPlayerID: s.TurnPlayerID,
		Dealer: DealerView{
			UpCards:  s.Dealer.UpCards(),
			Revealed: s.Dealer.Revealed,
		},
		Seats: make([]SeatView, 0, len(s.Seats)),
	}
	if s.Dealer.Revealed {
		view.Dealer.Hand = s.Dealer.Hand
		view.Dealer.Total = HandTotal(s.Dealer.Hand)
	}
	for _, seat := range s.Seats {
		view.Seats = append(view.Seats, SeatView{
			PlayerID:     seat.PlayerID,
			DisplayName:  seat.DisplayName,
			Order:        seat.Order,
			Bet:          seat.Bet,
			BetConfirmed: seat.BetConfirmed,
			Done:         seat.Done,
			Bust:         seat.Bust,
			Outcome:      seat.Outcome,
			Payout:       seat.Payout,
		})
	}
	return view
}

// PrivateViewOf derives the viewer's own private view, or nil when the viewer
// holds no seat in the session.
func PrivateViewOf(s *Session, viewerID string) *PrivateView {
	seat := s.SeatOf(viewerID)
	if seat == nil {
		return nil
	}
	view := &PrivateView{
		SessionID: s.ID,
		Version:   s.Version,
		PlayerID:  seat.PlayerID,
		Hand:      seat.Hand,
		Total:     HandTotal(seat.Hand),
		YourTurn:  s.TurnPlayerID == seat.PlayerID,
		Bust:      seat.Bust,
	}
	if viewerID == s.HostPlayerID && !s.Dealer.Revealed {
		if hole, ok := s.Dealer.HoleCard(); ok {
			h := hole
			view.DealerHole = &h
		}
	}
	return view
}
