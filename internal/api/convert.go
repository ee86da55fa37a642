package api

import "github.com/quissme/resonance/internal/services"

// Conversions between the persistence shapes above and the service-layer
// types. Kept in one place so the per-service adapters stay thin.

func quizToAPI(q *services.Quiz) *Quiz {
	if q == nil {
		return nil
	}
	out := &Quiz{
		ID:            q.ID,
		HiddenCluster: q.HiddenCluster,
		FacetLabel:    q.FacetLabel,
		Tone:          q.Tone,
	}
	for _, qu := range q.Questions {
		nq := Question{ID: qu.ID, Prompt: qu.Prompt}
		for _, op := range qu.Options {
			nq.Options = append(nq.Options, Option{ID: op.ID, Label: op.Label, ClusterScores: op.ClusterScores})
		}
		out.Questions = append(out.Questions, nq)
	}
	return out
}

func quizFromAPI(q *Quiz) *services.Quiz {
	if q == nil {
		return nil
	}
	out := &services.Quiz{
		ID:            q.ID,
		HiddenCluster: q.HiddenCluster,
		FacetLabel:    q.FacetLabel,
		Tone:          q.Tone,
	}
	for _, qu := range q.Questions {
		nq := services.Question{ID: qu.ID, Prompt: qu.Prompt}
		for _, op := range qu.Options {
			nq.Options = append(nq.Options, services.Option{ID: op.ID, Label: op.Label, ClusterScores: op.ClusterScores})
		}
		out.Questions = append(out.Questions, nq)
	}
	return out
}

func userToAPI(u *services.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:                u.ID,
		Name:              u.Name,
		BirthDate:         u.BirthDate,
		BirthTime:         u.BirthTime,
		BirthLocation:     u.BirthLocation,
		AstroData:         u.AstroData,
		InviteCode:        u.InviteCode,
		CoupleID:          u.CoupleID,
		WeeklyActivations: u.WeeklyActivations,
		WeekStart:         u.WeekStart,
		CreatedAt:         u.CreatedAt,
	}
}

func userFromAPI(u *User) *services.User {
	if u == nil {
		return nil
	}
	return &services.User{
		ID:                u.ID,
		Name:              u.Name,
		BirthDate:         u.BirthDate,
		BirthTime:         u.BirthTime,
		BirthLocation:     u.BirthLocation,
		AstroData:         u.AstroData,
		InviteCode:        u.InviteCode,
		CoupleID:          u.CoupleID,
		WeeklyActivations: u.WeeklyActivations,
		WeekStart:         u.WeekStart,
		CreatedAt:         u.CreatedAt,
	}
}

func gardenToAPI(g *services.Garden) *Garden {
	if g == nil {
		return nil
	}
	out := &Garden{Items: []GardenItem{}, Level: g.Level}
	for _, it := range g.Items {
		out.Items = append(out.Items, GardenItem(it))
	}
	return out
}

func gardenFromAPI(g *Garden) *services.Garden {
	if g == nil {
		return nil
	}
	out := &services.Garden{Items: []services.GardenItem{}, Level: g.Level}
	for _, it := range g.Items {
		out.Items = append(out.Items, services.GardenItem(it))
	}
	return out
}

func coupleToAPI(c *services.Couple) *Couple {
	if c == nil {
		return nil
	}
	return &Couple{
		ID:             c.ID,
		UserAID:        c.UserAID,
		UserBID:        c.UserBID,
		Interpretation: c.Interpretation,
		Garden:         gardenToAPI(c.Garden),
		CreatedAt:      c.CreatedAt,
	}
}

func coupleFromAPI(c *Couple) *services.Couple {
	if c == nil {
		return nil
	}
	return &services.Couple{
		ID:             c.ID,
		UserAID:        c.UserAID,
		UserBID:        c.UserBID,
		Interpretation: c.Interpretation,
		Garden:         gardenFromAPI(c.Garden),
		CreatedAt:      c.CreatedAt,
	}
}

func submissionToAPI(s *services.Submission) *Submission {
	if s == nil {
		return nil
	}
	out := &Submission{ClusterSums: s.ClusterSums}
	for _, a := range s.Answers {
		out.Answers = append(out.Answers, Answer(a))
	}
	return out
}

func submissionFromAPI(s *Submission) *services.Submission {
	if s == nil {
		return nil
	}
	out := &services.Submission{ClusterSums: s.ClusterSums}
	for _, a := range s.Answers {
		out.Answers = append(out.Answers, services.Answer(a))
	}
	return out
}

func resultToAPI(r *services.CycleResult) *CycleResult {
	if r == nil {
		return nil
	}
	return &CycleResult{
		CombinedScores:   r.CombinedScores,
		NormalizedScores: r.NormalizedScores,
		Tendencies:       r.Tendencies,
		PrimaryCluster:   r.PrimaryCluster,
		Zone:             string(r.Zone),
		ZoneSentence:     r.ZoneSentence,
		InsightText:      r.InsightText,
		Sector:           r.Sector,
	}
}

func resultFromAPI(r *CycleResult) *services.CycleResult {
	if r == nil {
		return nil
	}
	zone := services.Zone(r.Zone)
	return &services.CycleResult{
		CombinedScores:   r.CombinedScores,
		NormalizedScores: r.NormalizedScores,
		Tendencies:       r.Tendencies,
		PrimaryCluster:   r.PrimaryCluster,
		Zone:             zone,
		ZonePalette:      services.PaletteForZone(zone),
		ZoneSentence:     r.ZoneSentence,
		InsightText:      r.InsightText,
		Sector:           r.Sector,
		SectorTint:       services.TintForSector(r.Sector),
	}
}

func buffToAPI(b *services.Buff) *Buff {
	if b == nil {
		return nil
	}
	out := Buff(*b)
	return &out
}

func buffFromAPI(b *Buff) *services.Buff {
	if b == nil {
		return nil
	}
	out := services.Buff(*b)
	return &out
}

func rewardsToAPI(in []services.RewardChoice) []RewardChoice {
	if in == nil {
		return nil
	}
	out := make([]RewardChoice, 0, len(in))
	for _, r := range in {
		out = append(out, RewardChoice{
			ID:       r.ID,
			Name:     r.Name,
			Type:     r.Type,
			Category: r.Category,
			Zone:     string(r.Zone),
			Sector:   r.Sector,
		})
	}
	return out
}

func rewardsFromAPI(in []RewardChoice) []services.RewardChoice {
	if in == nil {
		return nil
	}
	out := make([]services.RewardChoice, 0, len(in))
	for _, r := range in {
		out = append(out, services.RewardChoice{
			ID:       r.ID,
			Name:     r.Name,
			Type:     r.Type,
			Category: r.Category,
			Zone:     services.Zone(r.Zone),
			Sector:   r.Sector,
		})
	}
	return out
}

func cycleToAPI(c *services.Cycle) *Cycle {
	if c == nil {
		return nil
	}
	return &Cycle{
		ID:            c.ID,
		CoupleID:      c.CoupleID,
		QuizID:        c.QuizID,
		State:         string(c.State),
		ActivatedBy:   c.ActivatedBy,
		CompletedBy:   c.CompletedBy,
		SubmissionA:   submissionToAPI(c.SubmissionA),
		SubmissionB:   submissionToAPI(c.SubmissionB),
		Result:        resultToAPI(c.Result),
		Zone:          string(c.Zone),
		Buff:          buffToAPI(c.Buff),
		RewardChoices: rewardsToAPI(c.RewardChoices),
		CreatedAt:     c.CreatedAt,
	}
}

func cycleFromAPI(c *Cycle) *services.Cycle {
	if c == nil {
		return nil
	}
	return &services.Cycle{
		ID:            c.ID,
		CoupleID:      c.CoupleID,
		QuizID:        c.QuizID,
		State:         services.CycleState(c.State),
		ActivatedBy:   c.ActivatedBy,
		CompletedBy:   c.CompletedBy,
		SubmissionA:   submissionFromAPI(c.SubmissionA),
		SubmissionB:   submissionFromAPI(c.SubmissionB),
		Result:        resultFromAPI(c.Result),
		Zone:          services.Zone(c.Zone),
		Buff:          buffFromAPI(c.Buff),
		RewardChoices: rewardsFromAPI(c.RewardChoices),
		CreatedAt:     c.CreatedAt,
	}
}

func auditToAPI(e services.AuditEntry) AuditEntry {
	return AuditEntry{Time: e.Time, Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note}
}
