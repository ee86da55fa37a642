package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CoupleStore abstracts user/couple persistence for pairing.
type CoupleStore interface {
	AddUser(u *User) error
	GetUser(id string) (*User, error)
	FindUserByInviteCode(code string) (*User, error)
	SetUserCouple(userID, coupleID string) error
	AddCouple(c *Couple) error
	GetCouple(id string) (*Couple, error)
	AddAudit(entry AuditEntry)
}

// TokenSigner issues a signed pairing token carrying the user and couple id.
type TokenSigner func(uid, coupleID, name string, ttl time.Duration) (string, error)

// MatchTextProvider generates the short couple interpretation shown after
// pairing. Failures fall back to a local sentence.
type MatchTextProvider interface {
	Interpret(ctx context.Context, signA, signB string) (string, error)
}

// AstroProvider enriches a profile with external astrology data. Optional;
// lookup failure falls back to the locally computed sun sign.
type AstroProvider interface {
	Lookup(ctx context.Context, birthDate, birthTime string) (map[string]any, error)
}

const pairingTokenTTL = 180 * 24 * time.Hour

// CoupleService handles registration, invite codes, and couple creation.
type CoupleService struct {
	store           CoupleStore
	astro           AstroProvider
	match           MatchTextProvider
	providerTimeout time.Duration
	signToken       TokenSigner
	rng             *rand.Rand

	now   func() time.Time
	idGen func() string
}

func NewCoupleService(store CoupleStore, astro AstroProvider, match MatchTextProvider, signer TokenSigner, rng *rand.Rand) *CoupleService {
	rng = NewLockedRand(rng)
	return &CoupleService{
		store:           store,
		astro:           astro,
		match:           match,
		providerTimeout: defaultInsightTimeout,
		signToken:       signer,
		rng:             rng,
		now:             func() time.Time { return time.Now().UTC() },
		idGen:           uuid.NewString,
	}
}

const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (s *CoupleService) newInviteCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = inviteAlphabet[s.rng.Intn(len(inviteAlphabet))]
	}
	return string(b)
}

// German zodiac signs; boundaries are the last day of each sign's first
// month of the calendar year.
var zodiacSigns = []string{
	"Steinbock", "Wassermann", "Fische", "Widder", "Stier", "Zwillinge",
	"Krebs", "Löwe", "Jungfrau", "Waage", "Skorpion", "Schütze",
}

var zodiacBoundaries = []int{20, 19, 20, 20, 21, 21, 22, 23, 23, 23, 22, 21}

// ZodiacSign computes the sun sign for an ISO birth date (YYYY-MM-DD).
// Unparseable dates yield "Steinbock" rather than an error; the profile
// field is cosmetic.
func ZodiacSign(birthDate string) string {
	parts := strings.Split(birthDate, "-")
	if len(parts) != 3 {
		return zodiacSigns[0]
	}
	month, err1 := strconv.Atoi(parts[1])
	day, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return zodiacSigns[0]
	}
	idx := month - 1
	if day > zodiacBoundaries[idx] {
		idx = (idx + 1) % 12
	}
	return zodiacSigns[idx]
}

func localAstroData(birthDate string) map[string]any {
	sign := ZodiacSign(birthDate)
	return map[string]any{
		"western": map[string]any{"sunSign": sign},
		"summary": map[string]any{"sternzeichen": sign},
	}
}

func sunSignFrom(astro map[string]any) string {
	if summary, ok := astro["summary"].(map[string]any); ok {
		if s, ok := summary["sternzeichen"].(string); ok && s != "" {
			return s
		}
	}
	return "Unbekannt"
}

func (s *CoupleService) astroDataFor(birthDate, birthTime string) map[string]any {
	if s.astro != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.providerTimeout)
		defer cancel()
		if data, err := s.astro.Lookup(ctx, birthDate, birthTime); err == nil && len(data) > 0 {
			return data
		}
	}
	return localAstroData(birthDate)
}

type Profile struct {
	Name          string
	BirthDate     string
	BirthTime     string
	BirthLocation string
}

type RegisterResult struct {
	User  *User
	Token string
}

// Register creates a new unpaired user with a fresh invite code and quota
// window, and issues a pairing token.
func (s *CoupleService) Register(p Profile) (*RegisterResult, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, NewInvalidError("name required")
	}
	if strings.TrimSpace(p.BirthDate) == "" {
		return nil, NewInvalidError("birth_date required")
	}
	now := s.now()
	user := &User{
		ID:            s.idGen(),
		Name:          p.Name,
		BirthDate:     p.BirthDate,
		BirthTime:     p.BirthTime,
		BirthLocation: p.BirthLocation,
		AstroData:     s.astroDataFor(p.BirthDate, p.BirthTime),
		InviteCode:    s.newInviteCode(),
		WeekStart:     now,
		CreatedAt:     now,
	}
	if err := s.store.AddUser(user); err != nil {
		return nil, err
	}
	token := ""
	if s.signToken != nil {
		var err error
		token, err = s.signToken(user.ID, "", user.Name, pairingTokenTTL)
		if err != nil {
			return nil, err
		}
	}
	s.store.AddAudit(AuditEntry{Time: now, Actor: user.ID, Action: "register", Target: user.ID})
	return &RegisterResult{User: user, Token: token}, nil
}

type JoinResult struct {
	User        *User
	CoupleID    string
	PartnerName string
	Token       string
}

// JoinInvite pairs a new user with the inviter identified by the code,
// creating the couple record with its interpretation text.
func (s *CoupleService) JoinInvite(code string, p Profile) (*JoinResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, NewInvalidError("invite_code required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, NewInvalidError("name required")
	}
	inviter, err := s.store.FindUserByInviteCode(code)
	if err != nil {
		return nil, err
	}
	if inviter == nil {
		return nil, NewNotFoundError("invalid invite code")
	}
	if inviter.CoupleID != "" {
		return nil, NewConflictError("invite code already used")
	}

	now := s.now()
	coupleID := s.idGen()
	partner := &User{
		ID:            s.idGen(),
		Name:          p.Name,
		BirthDate:     p.BirthDate,
		BirthTime:     p.BirthTime,
		BirthLocation: p.BirthLocation,
		AstroData:     s.astroDataFor(p.BirthDate, p.BirthTime),
		CoupleID:      coupleID,
		WeekStart:     now,
		CreatedAt:     now,
	}
	if err := s.store.AddUser(partner); err != nil {
		return nil, err
	}

	signA := sunSignFrom(inviter.AstroData)
	signB := sunSignFrom(partner.AstroData)
	couple := &Couple{
		ID:             coupleID,
		UserAID:        inviter.ID,
		UserBID:        partner.ID,
		Interpretation: s.interpretation(signA, signB),
		Garden:         &Garden{Items: []GardenItem{}, Level: 1},
		CreatedAt:      now,
	}
	if err := s.store.AddCouple(couple); err != nil {
		return nil, err
	}
	if err := s.store.SetUserCouple(inviter.ID, coupleID); err != nil {
		return nil, err
	}

	token := ""
	if s.signToken != nil {
		token, err = s.signToken(partner.ID, coupleID, partner.Name, pairingTokenTTL)
		if err != nil {
			return nil, err
		}
	}
	s.store.AddAudit(AuditEntry{Time: now, Actor: partner.ID, Action: "join_invite", Target: coupleID})
	return &JoinResult{User: partner, CoupleID: coupleID, PartnerName: inviter.Name, Token: token}, nil
}

func (s *CoupleService) interpretation(signA, signB string) string {
	if s.match != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.providerTimeout)
		defer cancel()
		if text, err := s.match.Interpret(ctx, signA, signB); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return fmt.Sprintf("Die Verbindung zwischen %s und %s birgt wunderbare Möglichkeiten.", signA, signB)
}

func (s *CoupleService) GetUser(id string) (*User, error) {
	u, err := s.store.GetUser(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	return u, nil
}

type CoupleView struct {
	Couple *Couple `json:"couple"`
	UserA  *User   `json:"user_a"`
	UserB  *User   `json:"user_b"`
}

func (s *CoupleService) GetCouple(id string) (*CoupleView, error) {
	c, err := s.store.GetCouple(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewNotFoundError("couple not found")
	}
	ua, err := s.store.GetUser(c.UserAID)
	if err != nil {
		return nil, err
	}
	ub, err := s.store.GetUser(c.UserBID)
	if err != nil {
		return nil, err
	}
	return &CoupleView{Couple: c, UserA: ua, UserB: ub}, nil
}

// Interpret implements MatchTextProvider on the chat provider so pairing
// reuses the same upstream as insight generation.
func (p *ChatInsightProvider) Interpret(ctx context.Context, signA, signB string) (string, error) {
	if strings.TrimSpace(p.Endpoint) == "" {
		return "", NewInvalidError("insight endpoint not configured")
	}
	prompt := fmt.Sprintf("Kurze positive Deutung für %s und %s als Paar. 3 Sätze: Begrüßung, Stärke, Impuls. Max 80 Wörter.", signA, signB)
	payload := map[string]any{
		"model":       p.Model,
		"temperature": 0.7,
		"messages": []map[string]string{
			{"role": "system", "content": "Du bist Resonance. Schreibe warm, positiv, spielerisch auf Deutsch. Keine Diagnose, keine Schuld."},
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return "", NewBadGatewayError(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return "", NewBadGatewayError(err.Error())
	}
	if len(cc.Choices) == 0 {
		return "", NewBadGatewayError("no choices")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

// HTTPAstroProvider posts the birth data to an external astrology endpoint.
type HTTPAstroProvider struct {
	Endpoint string
	Client   HTTPClient
}

func NewHTTPAstroProvider(endpoint string, client HTTPClient) *HTTPAstroProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAstroProvider{Endpoint: endpoint, Client: client}
}

func (p *HTTPAstroProvider) Lookup(ctx context.Context, birthDate, birthTime string) (map[string]any, error) {
	if strings.TrimSpace(p.Endpoint) == "" {
		return nil, NewInvalidError("astro endpoint not configured")
	}
	body, err := json.Marshal(map[string]string{"birthDate": birthDate, "birthTime": birthTime})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, NewBadGatewayError(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, NewBadGatewayError("astro lookup failed")
	}
	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, NewBadGatewayError(err.Error())
	}
	return data, nil
}
