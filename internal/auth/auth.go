// Package auth seats players and resolves who may act for which side.
//
// Two binding provenances share one capability surface: token seats (join,
// solo) prove possession of a secret, identity seats (frame channel) are trusted
// as asserted. Callers hold the session's store lock while calling in here.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
)

// Errors
var (
	ErrSeatTaken    = errf("seat already taken")
	ErrSeatInvalid  = errf("seat must be white, black or random")
	ErrGameFull     = errf("both seats are taken")
	ErrMissingToken = errf("token required")
	ErrInvalidToken = errf("token not recognized")
	ErrSeatedElse   = errf("identity already holds the other seat")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

const tokenPrefix = "tok_"

// SideChoice is a requested seat: white, black or random.
type SideChoice string

const (
	ChooseWhite  SideChoice = "white"
	ChooseBlack  SideChoice = "black"
	ChooseRandom SideChoice = "random"
)

// ParseSideChoice normalizes user input. Empty means random.
func ParseSideChoice(v string) SideChoice {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "random", "r", "any":
		return ChooseRandom
	case "white", "w":
		return ChooseWhite
	case "black", "b":
		return ChooseBlack
	default:
		return SideChoice(v)
	}
}

// NewToken mints an unguessable possession secret.
func NewToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return tokenPrefix + hex.EncodeToString(b), nil
}

// bindingID derives a stable binding id from a token without exposing it.
func bindingID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "t:" + hex.EncodeToString(sum[:])[:12]
}

// IssueToken seats a new token holder on the requested side.
func IssueToken(s *session.Session, choice SideChoice, name string, now time.Time) (string, session.Side, error) {
	side, err := pickSide(s, choice)
	if err != nil {
		return "", "", err
	}
	token, err := NewToken()
	if err != nil {
		return "", "", err
	}
	if s.Players == nil {
		s.Players = map[session.Side]*session.Binding{}
	}
	s.Players[side] = &session.Binding{
		ID:          bindingID(token),
		DisplayName: session.NormalizeName(name, ""),
		Token:       token,
		Provenance:  session.ProvenanceToken,
		JoinedAt:    now,
	}
	s.UpdatedAt = now
	return token, side, nil
}

// IssueSoloToken binds one token to both sides after resetting the game. Any
// game in progress is discarded.
func IssueSoloToken(s *session.Session, name string, oracle rules.Oracle, now time.Time) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	id := bindingID(token)
	display := session.NormalizeName(name, "")
	s.ClearGame(oracle.Initial())
	s.Players = map[session.Side]*session.Binding{}
	for _, side := range session.Sides {
		s.Players[side] = &session.Binding{
			ID:          id,
			DisplayName: display,
			Token:       token,
			Provenance:  session.ProvenanceToken,
			JoinedAt:    now,
		}
	}
	s.Status = session.StatusActive
	s.UpdatedAt = now
	return token, nil
}

// BindIdentity seats an externally asserted identity without a token.
// Re-binding an identity to the seat it already holds is a no-op.
func BindIdentity(s *session.Session, choice SideChoice, identityID, name string, now time.Time) (session.Side, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return "", ErrMissingToken
	}
	if side, ok := SideForIdentity(s, identityID); ok {
		if choice == ChooseRandom || SideChoice(side) == choice {
			return side, nil
		}
		return "", ErrSeatedElse
	}
	side, err := pickSide(s, choice)
	if err != nil {
		return "", err
	}
	if s.Players == nil {
		s.Players = map[session.Side]*session.Binding{}
	}
	s.Players[side] = &session.Binding{
		ID:          identityID,
		DisplayName: session.NormalizeName(name, ""),
		Provenance:  session.ProvenanceIdentity,
		JoinedAt:    now,
	}
	s.UpdatedAt = now
	return side, nil
}

// Authorize returns the sides token may act for; empty means unrecognized.
func Authorize(s *session.Session, token string) []session.Side {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	var out []session.Side
	for _, side := range session.Sides {
		b := s.Player(side)
		if b == nil || b.Token == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(b.Token), []byte(token)) == 1 {
			out = append(out, side)
		}
	}
	return out
}

// RequiresToken is true iff any binding carries a token.
func RequiresToken(s *session.Session) bool {
	for _, side := range session.Sides {
		if b := s.Player(side); b != nil && b.Token != "" {
			return true
		}
	}
	return false
}

// SideForIdentity finds the seat held by an identity binding.
func SideForIdentity(s *session.Session, identityID string) (session.Side, bool) {
	if identityID == "" {
		return "", false
	}
	for _, side := range session.Sides {
		if b := s.Player(side); b != nil && b.Token == "" && b.ID == identityID {
			return side, true
		}
	}
	return "", false
}

// SidesFor resolves an actor to the sides it may act for. When the session
// requires tokens the token decides; otherwise a seated identity acts for its
// seat and an anonymous actor for either side.
func SidesFor(s *session.Session, token, identityID string) ([]session.Side, error) {
	if RequiresToken(s) {
		if strings.TrimSpace(token) == "" {
			return nil, ErrMissingToken
		}
		sides := Authorize(s, token)
		if len(sides) == 0 {
			return nil, ErrInvalidToken
		}
		return sides, nil
	}
	if identityID != "" {
		if side, ok := SideForIdentity(s, identityID); ok {
			return []session.Side{side}, nil
		}
		return nil, nil
	}
	return []session.Side{session.White, session.Black}, nil
}

func pickSide(s *session.Session, choice SideChoice) (session.Side, error) {
	switch choice {
	case ChooseWhite, ChooseBlack:
		side := session.Side(choice)
		if s.Player(side) != nil {
			return "", ErrSeatTaken
		}
		return side, nil
	case ChooseRandom:
		var open []session.Side
		for _, side := range session.Sides {
			if s.Player(side) == nil {
				open = append(open, side)
			}
		}
		switch len(open) {
		case 0:
			return "", ErrGameFull
		case 1:
			return open[0], nil
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(open))))
		if err != nil {
			return open[0], nil
		}
		return open[n.Int64()], nil
	default:
		return "", ErrSeatInvalid
	}
}
