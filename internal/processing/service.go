package processing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"torn_war_bot/internal/app"
	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/claim"
	"torn_war_bot/internal/domain/leaderboard"
	"torn_war_bot/internal/domain/status"
	"torn_war_bot/internal/domain/war"
	"torn_war_bot/internal/metrics"
	"torn_war_bot/internal/notify"
	"torn_war_bot/internal/store"
	"torn_war_bot/internal/torn"

	"github.com/rs/zerolog/log"
)

// LeaderboardPageSize is the number of contributors per leaderboard page
const LeaderboardPageSize = 10

// Dependencies are the collaborators of a Service. Everything except Torn may
// be nil.
type Dependencies struct {
	Torn        TornClientInterface
	Stores      *Stores
	Preferences *notify.Preferences
	Exporters   []WarExporterInterface
	Status      StatusReporterInterface
	Metrics     *metrics.Metrics
}

// Service runs every bot operation against the shared AppState. The
// scheduler and the chat adapter both call into it.
type Service struct {
	state     *AppState
	torn      TornClientInterface
	fetcher   *torn.AttackFetcher
	stores    *Stores
	prefs     *notify.Preferences
	exporters []WarExporterInterface
	status    StatusReporterInterface
	metrics   *metrics.Metrics
	factionID int

	announcer AnnouncerInterface
	notifier  NotifierInterface

	now func() time.Time
}

// NewService creates a service for the tracked faction
func NewService(state *AppState, factionID int, deps Dependencies) *Service {
	prefs := deps.Preferences
	if prefs == nil {
		prefs = notify.NewPreferences(nil, 0)
	}
	return &Service{
		state:     state,
		torn:      deps.Torn,
		fetcher:   torn.NewAttackFetcher(deps.Torn),
		stores:    deps.Stores,
		prefs:     prefs,
		exporters: deps.Exporters,
		status:    deps.Status,
		metrics:   deps.Metrics,
		factionID: factionID,
		now:       time.Now,
	}
}

// Attach wires the chat side. It must be called before the scheduler starts.
func (s *Service) Attach(announcer AnnouncerInterface, notifier NotifierInterface) {
	s.announcer = announcer
	s.notifier = notifier
}

// PollWar fetches the ranked war payload and applies it to the tracker. The
// normalize, detect and react steps of one poll run in that order; the
// scheduler never overlaps two polls.
func (s *Service) PollWar(ctx context.Context) ([]war.Transition, error) {
	payload, err := s.torn.RankedWars(ctx, s.factionID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch ranked wars, retrying next tick")
		return nil, err
	}

	st := s.state
	st.mu.Lock()
	transitions := st.tracker.Poll(payload)
	current := st.tracker.Current()

	var ended, started, failed bool
	for _, t := range transitions {
		switch t.Kind {
		case war.WarEnded:
			ended = true
		case war.WarStarted:
			started = true
		case war.TransitionError:
			failed = true
		}
	}

	var milestone int64
	var crossed bool
	switch {
	case current == nil || !current.Ongoing():
		st.lastChain = 0
	case started:
		st.lastChain = current.TrackedFaction.Chain
	case !failed:
		milestone, crossed = notify.CrossedMilestone(st.lastChain, current.TrackedFaction.Chain)
		st.lastChain = current.TrackedFaction.Chain
	}

	if ended {
		st.surfaced = make(map[string]bool)
	}
	var history []war.WarHistoryEntry
	if ended {
		history = st.history.Entries()
	}
	activeClaims := st.claims.Len()
	st.mu.Unlock()

	if started || ended {
		if cache, ok := s.torn.(CacheInvalidatorInterface); ok {
			cache.ClearCache()
		}
	}

	checkedAt := s.now()
	s.observePoll(transitions, current, activeClaims)
	if s.status != nil {
		if current != nil {
			s.status.SetWar(current.WarID, current.Ongoing())
		} else {
			s.status.SetWar("", false)
		}
		s.status.MarkChecked(checkedAt)
	}

	if !failed && s.stores != nil {
		s.persist(ctx, store.CurrentWarFile, func(ctx context.Context) error {
			return s.stores.Current.Save(ctx, current)
		})
	}
	if ended && s.stores != nil {
		s.persist(ctx, store.WarHistoryFile, func(ctx context.Context) error {
			return s.stores.History.Save(ctx, history)
		})
	}

	for _, t := range transitions {
		switch t.Kind {
		case war.WarStarted, war.WarEnded:
			s.announce(ctx, t)
			s.dispatch(ctx, notify.EventWar, transitionMessage(t))
			if t.Kind == war.WarEnded {
				s.finishWar(ctx, *t.Snapshot)
			}
		}
	}

	if crossed {
		s.dispatch(ctx, notify.EventChain, chainMessage(*current, milestone))
	}

	return transitions, nil
}

// finishWar runs the best-effort end of war work: a last attack import, the
// leaderboard and the exporters. Failures are logged and never touch state.
func (s *Service) finishWar(ctx context.Context, final war.WarSnapshot) {
	if _, err := s.importFor(ctx, &final); err != nil {
		log.Warn().Err(err).Str("war_id", final.WarID).Msg("Final attack import failed")
	}

	official, haveOfficial := s.officialContributors(ctx, final.WarID)

	s.state.mu.Lock()
	entry, ok := s.state.history.Find(final.WarID)
	records := s.state.ledger.Records(final.WarID)
	s.state.mu.Unlock()
	if !ok {
		entry = war.NewHistoryEntry(final, s.now())
	}

	summary := leaderboard.Summarize(entry, final, official, haveOfficial, records)
	log.Info().
		Str("war_id", final.WarID).
		Str("outcome", string(entry.Outcome)).
		Str("source", string(summary.Source)).
		Int("contributors", len(summary.Contributors)).
		Msg("War summary ready")

	for _, exporter := range s.exporters {
		if err := exporter.ExportWar(ctx, summary); err != nil {
			log.Warn().
				Err(err).
				Str("exporter", exporter.Name()).
				Str("war_id", final.WarID).
				Msg("War export failed")
		}
	}
}

// ScanResult is the outcome of one target scan
type ScanResult struct {
	WarID string
	// unclaimed attackable members, payload order
	Targets []status.Target
	// the subset not surfaced by the previous scan
	New []status.Target
}

// ScanTargets fetches the opponent's members and surfaces the attackable,
// unclaimed ones. It does nothing unless a war is ongoing.
func (s *Service) ScanTargets(ctx context.Context) (ScanResult, error) {
	st := s.state
	current, surfaced, memberCount, err := s.fetchTargets(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	if current == nil {
		st.mu.Lock()
		st.surfaced = make(map[string]bool)
		st.mu.Unlock()
		return ScanResult{}, nil
	}

	st.mu.Lock()
	if !s.stillOngoing(current.WarID) {
		// the war changed while the members were being fetched
		st.mu.Unlock()
		return ScanResult{}, nil
	}
	result := ScanResult{WarID: current.WarID}
	seen := make(map[string]bool, len(surfaced))
	for _, t := range surfaced {
		if st.claims.IsClaimed(t.MemberID) {
			continue
		}
		result.Targets = append(result.Targets, t)
		seen[t.MemberID] = true
		if !st.surfaced[t.MemberID] {
			result.New = append(result.New, t)
		}
	}
	st.surfaced = seen
	st.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SurfacedTargets.Set(float64(len(result.Targets)))
	}

	log.Debug().
		Str("war_id", result.WarID).
		Int("members", memberCount).
		Int("targets", len(result.Targets)).
		Int("new_targets", len(result.New)).
		Msg("Completed target scan")

	if len(result.New) > 0 {
		if s.announcer != nil {
			if err := s.announcer.AnnounceTargets(ctx, result.WarID, result.New); err != nil {
				log.Warn().Err(err).Msg("Failed to announce targets")
			}
		}
		s.dispatch(ctx, notify.EventTargets, targetsMessage(*current, result.New))
	}

	return result, nil
}

// Targets lists the unclaimed attackable members of the ongoing war. Unlike
// ScanTargets it announces nothing and leaves the next scan's new targets
// unchanged.
func (s *Service) Targets(ctx context.Context) (ScanResult, error) {
	current, surfaced, _, err := s.fetchTargets(ctx)
	if err != nil || current == nil {
		return ScanResult{}, err
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if !s.stillOngoing(current.WarID) {
		return ScanResult{}, nil
	}
	result := ScanResult{WarID: current.WarID}
	for _, t := range surfaced {
		if !s.state.claims.IsClaimed(t.MemberID) {
			result.Targets = append(result.Targets, t)
		}
	}
	return result, nil
}

// fetchTargets classifies the opponent's members. The snapshot is nil when no
// war is ongoing.
func (s *Service) fetchTargets(ctx context.Context) (*war.WarSnapshot, []status.Target, int, error) {
	s.state.mu.Lock()
	current := s.state.tracker.Current()
	s.state.mu.Unlock()
	if current == nil || !current.Ongoing() {
		return nil, nil, 0, nil
	}

	opponentID, err := strconv.Atoi(current.OpponentFaction.ID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("invalid opponent faction id %q: %w", current.OpponentFaction.ID, err)
	}

	members, err := s.torn.Members(ctx, opponentID)
	if err != nil {
		log.Warn().Err(err).Int("opponent_id", opponentID).Msg("Failed to fetch opponent members, retrying next tick")
		return nil, nil, 0, err
	}

	return current, status.SurfacedTargets(members, s.now()), members.Len(), nil
}

// stillOngoing reports whether warID is the held ongoing war. Callers hold
// the state lock.
func (s *Service) stillOngoing(warID string) bool {
	held := s.state.tracker.Current()
	return held != nil && held.WarID == warID && held.Ongoing()
}

// Claim reserves an opponent member for a user. Claims are only taken while
// a war is ongoing, so nothing outlives the war clear at WarEnded.
func (s *Service) Claim(memberID, userID string) (claim.Claim, string, error) {
	s.state.mu.Lock()
	if current := s.state.tracker.Current(); current == nil || !current.Ongoing() {
		s.state.mu.Unlock()
		return claim.Claim{}, "", attack.ErrNoActiveWar
	}
	held, previous, err := s.state.claims.Claim(memberID, userID)
	n := s.state.claims.Len()
	s.state.mu.Unlock()

	s.observeClaims(n)
	if err == nil {
		log.Info().
			Str("member_id", memberID).
			Str("user_id", userID).
			Str("previous_user_id", previous).
			Msg("Target claimed")
	}
	return held, previous, err
}

// Unclaim releases a member. Unclaiming an unclaimed member returns
// claim.ErrNotClaimed.
func (s *Service) Unclaim(memberID string) (claim.Claim, error) {
	s.state.mu.Lock()
	released, err := s.state.claims.Unclaim(memberID)
	n := s.state.claims.Len()
	s.state.mu.Unlock()

	s.observeClaims(n)
	return released, err
}

// Claims lists current claims in the order they were made
func (s *Service) Claims() []claim.Claim {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.claims.List()
}

// RecordAttack appends a manually reported attack to the held war. A record
// without points is scored from its result.
func (s *Service) RecordAttack(ctx context.Context, record attack.AttackRecord) (attack.AttackRecord, error) {
	if record.Points == 0 && record.Result != "" {
		record.Points = attack.PointsFor(app.RawAttack{Result: record.Result})
	}
	record.Source = attack.SourceManual

	s.state.mu.Lock()
	stamp := stampFor(s.state.tracker.Current())
	saved, err := s.state.ledger.Record(stamp, record)
	var ledger map[string]attack.WarLedger
	if err == nil {
		ledger = s.state.ledger.Snapshot()
	}
	s.state.mu.Unlock()

	if err != nil {
		return attack.AttackRecord{}, err
	}
	s.saveLedger(ctx, ledger)
	return saved, nil
}

// DeleteAttack removes the attack at a 1-based position. An empty war id
// means the held war.
func (s *Service) DeleteAttack(ctx context.Context, warID string, index int) (attack.AttackRecord, error) {
	s.state.mu.Lock()
	if warID == "" {
		current := s.state.tracker.Current()
		if current == nil {
			s.state.mu.Unlock()
			return attack.AttackRecord{}, attack.ErrNoActiveWar
		}
		warID = current.WarID
	}
	removed, err := s.state.ledger.Delete(warID, index)
	var ledger map[string]attack.WarLedger
	if err == nil {
		ledger = s.state.ledger.Snapshot()
	}
	s.state.mu.Unlock()

	if err != nil {
		return attack.AttackRecord{}, err
	}

	log.Info().
		Str("war_id", warID).
		Int("index", index).
		Str("attacker_id", removed.AttackerID).
		Msg("Deleted attack")

	s.saveLedger(ctx, ledger)
	return removed, nil
}

// Attacks returns a war's raw attack list. An empty war id means the held war.
func (s *Service) Attacks(warID string) (string, []attack.AttackRecord, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if warID == "" {
		current := s.state.tracker.Current()
		if current == nil {
			return "", nil, attack.ErrNoActiveWar
		}
		warID = current.WarID
	}
	records, err := s.state.ledger.Attacks(warID)
	return warID, records, err
}

// Stats aggregates a member's attacks in one war, or across all wars when
// warID is empty
func (s *Service) Stats(memberID, warID string) attack.MemberStats {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.ledger.StatsFor(memberID, warID)
}

// ImportAttacks pulls the held war's attacks on the opponent from the API
// into the ledger and returns how many were new
func (s *Service) ImportAttacks(ctx context.Context) (int, error) {
	s.state.mu.Lock()
	current := s.state.tracker.Current()
	s.state.mu.Unlock()

	if current == nil {
		return 0, attack.ErrNoActiveWar
	}
	return s.importFor(ctx, current)
}

func (s *Service) importFor(ctx context.Context, snapshot *war.WarSnapshot) (int, error) {
	s.state.mu.Lock()
	latest := s.state.ledger.LatestImported(snapshot.WarID)
	s.state.mu.Unlock()

	window := attack.CalculateTimeRange(snapshot.StartTime, snapshot.EndTime, latest, s.now().Unix())
	records, err := s.fetcher.FetchWarAttacks(ctx, window, snapshot.OpponentFaction.ID)
	if err != nil {
		return 0, err
	}

	s.state.mu.Lock()
	added, err := s.state.ledger.Import(stampFor(snapshot), records)
	var ledger map[string]attack.WarLedger
	if err == nil && added > 0 {
		ledger = s.state.ledger.Snapshot()
	}
	s.state.mu.Unlock()
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("war_id", snapshot.WarID).
		Int("fetched", len(records)).
		Int("added", added).
		Msg("Imported attacks")

	if ledger != nil {
		s.saveLedger(ctx, ledger)
	}
	return added, nil
}

// LeaderboardView is one page of a war's contributors
type LeaderboardView struct {
	WarID  string
	Source leaderboard.Source
	Page   leaderboard.Page[leaderboard.Contributor]
}

// Leaderboard ranks a war's contributors. An empty war id means the held
// war, or the most recent ended war when none is held.
func (s *Service) Leaderboard(ctx context.Context, warID string, page int) (LeaderboardView, error) {
	warID, contributors, source, err := s.contributorsFor(ctx, warID)
	if err != nil {
		return LeaderboardView{}, err
	}
	return LeaderboardView{
		WarID:  warID,
		Source: source,
		Page:   leaderboard.Paginate(contributors, LeaderboardPageSize, page),
	}, nil
}

// PayoutView is a payout plan with the war it was computed for
type PayoutView struct {
	WarID  string
	Source leaderboard.Source
	Plan   leaderboard.PayoutPlan
}

// Payout splits totalSale across a war's contributors by attack count
func (s *Service) Payout(ctx context.Context, warID string, totalSale float64, shareholders int, pctPerHolder float64) (PayoutView, error) {
	if totalSale < 0 || shareholders < 0 || pctPerHolder < 0 {
		return PayoutView{}, fmt.Errorf("payout amounts must not be negative")
	}

	warID, contributors, source, err := s.contributorsFor(ctx, warID)
	if err != nil {
		return PayoutView{}, err
	}
	return PayoutView{
		WarID:  warID,
		Source: source,
		Plan:   leaderboard.ComputePayout(contributors, totalSale, shareholders, pctPerHolder),
	}, nil
}

// contributorsFor prefers the official war report and falls back to the
// ledger. The report is not requested for the held ongoing war.
func (s *Service) contributorsFor(ctx context.Context, warID string) (string, []leaderboard.Contributor, leaderboard.Source, error) {
	s.state.mu.Lock()
	current := s.state.tracker.Current()
	if warID == "" {
		if current != nil {
			warID = current.WarID
		} else if latest, ok := s.state.history.Latest(); ok {
			warID = latest.WarID
		}
	}
	if warID == "" {
		s.state.mu.Unlock()
		return "", nil, "", attack.ErrNoActiveWar
	}
	_, inHistory := s.state.history.Find(warID)
	_, inLedger := s.state.ledger.War(warID)
	ongoing := current != nil && current.WarID == warID && current.Ongoing()
	known := inHistory || inLedger || (current != nil && current.WarID == warID)
	s.state.mu.Unlock()

	if !ongoing {
		if official, ok := s.officialContributors(ctx, warID); ok {
			return warID, official, leaderboard.SourceOfficial, nil
		}
	}

	if !known {
		return "", nil, "", fmt.Errorf("%w: unknown war %s", attack.ErrNotFound, warID)
	}

	s.state.mu.Lock()
	records := s.state.ledger.Records(warID)
	s.state.mu.Unlock()

	return warID, leaderboard.FallbackContributors(records), leaderboard.SourceLedger, nil
}

func (s *Service) officialContributors(ctx context.Context, warID string) ([]leaderboard.Contributor, bool) {
	report, err := s.torn.WarReport(ctx, warID)
	if err != nil {
		log.Warn().Err(err).Str("war_id", warID).Msg("War report unavailable, using ledger")
		return nil, false
	}
	return leaderboard.OfficialContributors(report, s.factionID)
}

// CurrentWar returns a copy of the held snapshot, or nil
func (s *Service) CurrentWar() *war.WarSnapshot {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.tracker.Current()
}

// LookupWar normalizes one war from the faction's ranked war history
func (s *Service) LookupWar(ctx context.Context, warID string) (*war.WarSnapshot, error) {
	payload, err := s.torn.RankedWarHistory(ctx, s.factionID)
	if err != nil {
		return nil, err
	}
	return war.Normalize(payload, s.factionID, warID)
}

// History returns the ended wars, oldest first
func (s *Service) History() []war.WarHistoryEntry {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.history.Entries()
}

// SetNotification opts a user in or out of one event type
func (s *Service) SetNotification(ctx context.Context, userID string, event notify.EventType, enabled bool) (notify.UserPreferences, error) {
	prefs, err := s.prefs.Set(userID, event, enabled)
	if err != nil {
		return notify.UserPreferences{}, err
	}
	if s.stores != nil {
		s.persist(ctx, store.PreferencesFile, func(ctx context.Context) error {
			return s.stores.SavePreferences(ctx, s.prefs.Snapshot())
		})
	}
	return prefs, nil
}

// Preferences returns a user's settings, creating the defaults on first use
func (s *Service) Preferences(userID string) notify.UserPreferences {
	return s.prefs.Get(userID)
}

func (s *Service) saveLedger(ctx context.Context, ledger map[string]attack.WarLedger) {
	if s.stores == nil {
		return
	}
	s.persist(ctx, store.AttackLedgerFile, func(ctx context.Context) error {
		return s.stores.Ledger.Save(ctx, ledger)
	})
}

// persist runs a save. A failed write is counted; the in-memory state stays
// authoritative.
func (s *Service) persist(ctx context.Context, document string, save func(context.Context) error) {
	err := save(ctx)
	if err == nil {
		return
	}
	var perr *store.PersistenceError
	if !errors.As(err, &perr) {
		log.Error().Err(err).Str("document", document).Msg("Failed to persist document")
	}
	if s.metrics != nil {
		s.metrics.PersistenceErrors.WithLabelValues(document).Inc()
	}
}

func (s *Service) announce(ctx context.Context, t war.Transition) {
	if s.announcer == nil {
		return
	}
	if err := s.announcer.AnnounceTransition(ctx, t); err != nil {
		log.Warn().Err(err).Str("war_id", t.WarID()).Str("transition", t.Kind.String()).Msg("Failed to announce war transition")
	}
}

func (s *Service) dispatch(ctx context.Context, event notify.EventType, message string) {
	if s.notifier == nil {
		return
	}
	result := s.notifier.Dispatch(ctx, event, message)
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(string(event), "delivered").Add(float64(len(result.Delivered)))
		s.metrics.Notifications.WithLabelValues(string(event), "failed").Add(float64(len(result.Failed)))
	}
}

func (s *Service) observePoll(transitions []war.Transition, current *war.WarSnapshot, activeClaims int) {
	if s.metrics == nil {
		return
	}
	for _, t := range transitions {
		s.metrics.Transitions.WithLabelValues(t.Kind.String()).Inc()
		var nerr *war.NormalizationError
		if errors.As(t.Err, &nerr) {
			s.metrics.NormalizationErrors.WithLabelValues(string(nerr.Reason)).Inc()
		}
	}
	if current != nil {
		s.metrics.FactionScore.WithLabelValues("tracked").Set(float64(current.TrackedFaction.Score))
		s.metrics.FactionScore.WithLabelValues("opponent").Set(float64(current.OpponentFaction.Score))
		s.metrics.FactionChain.WithLabelValues("tracked").Set(float64(current.TrackedFaction.Chain))
		s.metrics.FactionChain.WithLabelValues("opponent").Set(float64(current.OpponentFaction.Chain))
	}
	s.metrics.ActiveClaims.Set(float64(activeClaims))
}

func (s *Service) observeClaims(n int) {
	if s.metrics != nil {
		s.metrics.ActiveClaims.Set(float64(n))
	}
}
