package api

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strings"

	"github.com/quissme/resonance/internal/services"
)

// Router wires the HTTP surface onto the services. All handlers speak JSON
// and translate ServiceError codes into HTTP statuses in one place.
type Router struct {
	store    Store
	catalog  *services.CatalogService
	couples  *services.CoupleService
	cycles   *services.CycleService
	wheel    *services.WheelService
	garden   *services.GardenService
	stats    *services.StatsService
	userData *services.UserDataService
}

// Options carries the external collaborators the services need. Zero values
// are fine: missing providers fall back to local behavior, a nil Rand seeds
// from the clock.
type Options struct {
	SignToken services.TokenSigner
	Insight   services.InsightProvider
	Astro     services.AstroProvider
	Match     services.MatchTextProvider
	Rand      *rand.Rand
}

func NewRouter(store Store, opts Options) *Router {
	// Both rng-holding services get the same locked instance; handing each
	// the raw rand would race them against each other on one source.
	rng := services.NewLockedRand(opts.Rand)
	return &Router{
		store:    store,
		catalog:  services.NewCatalogService(&catalogStoreAdapter{store: store}),
		couples:  services.NewCoupleService(&coupleStoreAdapter{store: store}, opts.Astro, opts.Match, opts.SignToken, rng),
		cycles:   services.NewCycleService(&cycleStoreAdapter{store: store}, opts.Insight, rng),
		wheel:    services.NewWheelService(&wheelStoreAdapter{store: store}),
		garden:   services.NewGardenService(&gardenStoreAdapter{store: store}),
		stats:    services.NewStatsService(&statsStoreAdapter{store: store}),
		userData: services.NewUserDataService(&userDataStoreAdapter{store: store}),
	}
}

// Catalog exposes the catalog service for seeding at startup.
func (rt *Router) Catalog() *services.CatalogService { return rt.catalog }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/users/register", rt.handleRegister)
	mux.HandleFunc("/api/users/", rt.handleGetUser)
	mux.HandleFunc("/api/invite/join", rt.handleJoinInvite)
	mux.HandleFunc("/api/couple/", rt.handleGetCouple)
	mux.HandleFunc("/api/quizzes", rt.handleListQuizzes)
	mux.HandleFunc("/api/quizzes/", rt.handleGetQuiz)
	mux.HandleFunc("/api/quiz/wheel/", rt.handleWheel)
	mux.HandleFunc("/api/quiz/activate", rt.handleActivate)
	mux.HandleFunc("/api/quiz/submit", rt.handleSubmit)
	mux.HandleFunc("/api/quiz/reveal/", rt.handleReveal)
	mux.HandleFunc("/api/cycles/", rt.handleListCycles)
	mux.HandleFunc("/api/cycle/", rt.handleGetCycle)
	mux.HandleFunc("/api/garden/place", rt.handlePlaceItem)
	mux.HandleFunc("/api/garden/", rt.handleGetGarden)
	mux.HandleFunc("/api/stats/", rt.handleStats)
	mux.HandleFunc("/api/privacy/export/", rt.handleExport)
	mux.HandleFunc("/api/privacy/user/", rt.handleDeleteUser)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorAlreadySubmitted, services.ErrorConflict, services.ErrorInvalidState:
		return http.StatusConflict
	case services.ErrorQuotaExceeded:
		return http.StatusTooManyRequests
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Limit string `json:"limit,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeJSON(w, statusFor(se.Code), errorBody{Error: se.Message, Code: string(se.Code), Limit: se.Limit})
		return
	}
	log.Printf("internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: string(services.ErrorInternal)})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: string(services.ErrorInvalid)})
}

// pathTail returns the path segments after the given prefix, without empty
// trailing entries.
func pathTail(r *http.Request, prefix string) []string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return services.NewInvalidError("invalid request body")
	}
	return nil
}

type profileRequest struct {
	Name          string `json:"name"`
	BirthDate     string `json:"birth_date"`
	BirthTime     string `json:"birth_time"`
	BirthLocation string `json:"birth_location"`
}

func (p profileRequest) profile() services.Profile {
	return services.Profile{
		Name:          p.Name,
		BirthDate:     p.BirthDate,
		BirthTime:     p.BirthTime,
		BirthLocation: p.BirthLocation,
	}
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := rt.couples.Register(req.profile())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":        res.User,
		"invite_code": res.User.InviteCode,
		"token":       res.Token,
	})
}

func (rt *Router) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/users/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("user not found"))
		return
	}
	u, err := rt.couples.GetUser(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (rt *Router) handleJoinInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		InviteCode string `json:"invite_code"`
		profileRequest
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := rt.couples.JoinInvite(req.InviteCode, req.profile())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":         res.User,
		"couple_id":    res.CoupleID,
		"partner_name": res.PartnerName,
		"token":        res.Token,
	})
}

func (rt *Router) handleGetCouple(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/couple/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("couple not found"))
		return
	}
	view, err := rt.couples.GetCouple(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, err := rt.catalog.ListQuizzes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": list})
}

func (rt *Router) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/quizzes/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("quiz not found"))
		return
	}
	q, err := rt.catalog.GetQuiz(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (rt *Router) handleWheel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/quiz/wheel/")
	if len(seg) != 2 {
		writeError(w, services.NewInvalidError("expected /api/quiz/wheel/{coupleID}/{userID}"))
		return
	}
	proj, err := rt.wheel.ProjectWheel(seg[0], seg[1])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (rt *Router) handleActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		CoupleID string `json:"couple_id"`
		QuizID   string `json:"quiz_id"`
		UserID   string `json:"user_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cycle, err := rt.cycles.Activate(req.CoupleID, req.QuizID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cycle)
}

func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		CycleID string            `json:"cycle_id"`
		UserID  string            `json:"user_id"`
		Answers []services.Answer `json:"answers"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cycle, err := rt.cycles.Submit(req.CycleID, req.UserID, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

func (rt *Router) handleReveal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/quiz/reveal/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("cycle not found"))
		return
	}
	cycle, err := rt.cycles.Reveal(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

func (rt *Router) handleListCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/cycles/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("couple not found"))
		return
	}
	cycles, err := rt.cycles.ListCycles(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

func (rt *Router) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/cycle/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("cycle not found"))
		return
	}
	cycle, err := rt.cycles.GetCycle(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

func (rt *Router) handlePlaceItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		CoupleID  string  `json:"couple_id"`
		UserID    string  `json:"user_id"`
		ItemID    string  `json:"item_id"`
		PositionX float64 `json:"position_x"`
		PositionY float64 `json:"position_y"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	g, err := rt.garden.PlaceItem(req.CoupleID, req.UserID, req.ItemID, req.PositionX, req.PositionY)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (rt *Router) handleGetGarden(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/garden/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("couple not found"))
		return
	}
	g, err := rt.garden.GetGarden(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/stats/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("couple not found"))
		return
	}
	st, err := rt.stats.Summary(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/privacy/export/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("user not found"))
		return
	}
	export, err := rt.userData.ExportUser(seg[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (rt *Router) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	seg := pathTail(r, "/api/privacy/user/")
	if len(seg) != 1 {
		writeError(w, services.NewNotFoundError("user not found"))
		return
	}
	if err := rt.userData.DeleteUser(seg[0]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
