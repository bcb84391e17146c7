package services

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-admin/models"
	"lecture-admin/storage"
)

// Match-Typen einer Duplikat-Gruppe.
const (
	MatchTypeExact   = "exact"
	MatchTypeSimilar = "similar"
)

// DuplicateEntity ist ein Gruppen-Mitglied mit den Zusatzinfos, die der
// Operator für die Keep/Delete-Entscheidung braucht.
type DuplicateEntity struct {
	ID              uint   `json:"id"`
	Type            string `json:"type"`
	DisplayName     string `json:"display_name"`
	HebrewName      string `json:"hebrew_name,omitempty"`
	ConnectionCount int    `json:"connection_count"`
	HasImage        bool   `json:"has_image"`
}

// DuplicateGroup ist eine ephemere, pro Lauf frisch berechnete Gruppe
// mutmaßlicher Duplikate. Sie wird nie persistiert.
type DuplicateGroup struct {
	Name       string            `json:"name"`
	GroupSig   string            `json:"group_sig"`
	MatchType  string            `json:"match_type"`
	Similarity float64           `json:"similarity"`
	Entities   []DuplicateEntity `json:"entities"`
}

// DetectionResult ist die Ausgabe eines Detektor-Laufs. AutoMerged führt
// die Signaturen auf, die in diesem Lauf per Verlauf-Replay aufgelöst
// wurden.
type DetectionResult struct {
	Exact      []DuplicateGroup `json:"exact"`
	Similar    []DuplicateGroup `json:"similar"`
	AutoMerged []string         `json:"auto_merged,omitempty"`
}

// DuplicateDetector scannt den Katalog nach exakten und ähnlichen
// Namens-Duplikaten über alle sieben Entity-Typen hinweg.
type DuplicateDetector struct {
	DB        *gorm.DB
	Blobs     storage.Blobs
	Logger    *zap.Logger
	History   *HistoryService
	Merger    *MergeService
	Threshold float64
}

// NewDuplicateDetector erstellt eine neue Instanz des DuplicateDetector.
func NewDuplicateDetector(db *gorm.DB, blobs storage.Blobs, logger *zap.Logger,
	history *HistoryService, merger *MergeService, threshold float64) *DuplicateDetector {
	return &DuplicateDetector{
		DB:        db,
		Blobs:     blobs,
		Logger:    logger,
		History:   history,
		Merger:    merger,
		Threshold: threshold,
	}
}

// candidate ist eine Entity mit vorberechnetem Normalnamen.
type candidate struct {
	entity catalogEntity
	typ    models.EntityType
	norm   string
}

// Detect berechnet die Duplikat-Gruppen frisch aus dem Katalog, filtert
// abgelehnte Gruppen heraus und spielt genehmigte Entscheidungen aus dem
// Verlauf automatisch nach. Wiederholte Aufrufe sind dadurch idempotent
// gegenüber früheren Operator-Entscheidungen.
func (d *DuplicateDetector) Detect(ctx context.Context) (*DetectionResult, error) {
	candidates, err := d.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}

	exactGroups := d.buildExactGroups(ctx, candidates)
	similarGroups := d.buildSimilarGroups(ctx, candidates)

	history, err := d.History.List(ctx)
	if err != nil {
		return nil, err
	}
	decided := make(map[string]models.MergeHistory, len(history))
	for _, entry := range history {
		decided[entry.GroupSig] = entry
	}

	result := &DetectionResult{}
	for _, group := range exactGroups {
		d.applyDecision(ctx, group, decided, result, &result.Exact)
	}
	for _, group := range similarGroups {
		d.applyDecision(ctx, group, decided, result, &result.Similar)
	}
	return result, nil
}

// applyDecision sortiert eine Gruppe anhand des Verlaufs ein: declined
// verschwindet, approved wird nachgespielt, alles andere landet in der
// interaktiven Liste.
func (d *DuplicateDetector) applyDecision(ctx context.Context, group DuplicateGroup,
	decided map[string]models.MergeHistory, result *DetectionResult, out *[]DuplicateGroup) {
	entry, ok := decided[group.GroupSig]
	if !ok {
		*out = append(*out, group)
		return
	}
	switch entry.Action {
	case models.HistoryActionDeclined:
		// vom Operator als kein-Duplikat markiert
	case models.HistoryActionApproved:
		if d.autoResolve(ctx, group, entry.KeepType) {
			result.AutoMerged = append(result.AutoMerged, group.GroupSig)
		}
	}
}

// loadCandidates lädt alle Entities der sieben Typen mit Normalnamen.
func (d *DuplicateDetector) loadCandidates(ctx context.Context) ([]candidate, error) {
	var candidates []candidate
	for _, t := range models.AllEntityTypes() {
		rows, err := fetchAllEntities(ctx, d.DB, t)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			norm := normalizeName(row.DisplayName)
			if norm == "" {
				continue
			}
			candidates = append(candidates, candidate{entity: row, typ: t, norm: norm})
		}
	}
	return candidates, nil
}

// buildExactGroups gruppiert Kandidaten mit byte-gleichem Normalnamen.
func (d *DuplicateDetector) buildExactGroups(ctx context.Context, candidates []candidate) []DuplicateGroup {
	byNorm := make(map[string][]candidate)
	for _, c := range candidates {
		byNorm[c.norm] = append(byNorm[c.norm], c)
	}

	norms := make([]string, 0, len(byNorm))
	for norm, members := range byNorm {
		if len(members) >= 2 {
			norms = append(norms, norm)
		}
	}
	sort.Strings(norms)

	groups := make([]DuplicateGroup, 0, len(norms))
	for _, norm := range norms {
		groups = append(groups, d.makeGroup(ctx, norm, byNorm[norm], MatchTypeExact, 1.0))
	}
	return groups
}

// buildSimilarGroups verbindet verschiedene Normalnamen oberhalb des
// Ähnlichkeits-Schwellwerts und bildet die transitive Hülle per Union-Find.
func (d *DuplicateDetector) buildSimilarGroups(ctx context.Context, candidates []candidate) []DuplicateGroup {
	byNorm := make(map[string][]candidate)
	for _, c := range candidates {
		byNorm[c.norm] = append(byNorm[c.norm], c)
	}
	norms := make([]string, 0, len(byNorm))
	for norm := range byNorm {
		norms = append(norms, norm)
	}
	sort.Strings(norms)

	uf := newUnionFind(len(norms))
	pairScore := make(map[int]float64) // Wurzel → bester Paar-Score
	for i := 0; i < len(norms); i++ {
		for j := i + 1; j < len(norms); j++ {
			score := nameSimilarity(norms[i], norms[j])
			if score < d.Threshold {
				continue
			}
			uf.union(i, j)
			root := uf.find(i)
			if score > pairScore[root] {
				pairScore[root] = score
			}
		}
	}

	// Komponenten einsammeln; nach Union können Scores an alten Wurzeln
	// hängen, daher einmal konsolidieren
	components := make(map[int][]int)
	for i := range norms {
		components[uf.find(i)] = append(components[uf.find(i)], i)
	}
	bestScore := make(map[int]float64)
	for oldRoot, score := range pairScore {
		root := uf.find(oldRoot)
		if score > bestScore[root] {
			bestScore[root] = score
		}
	}

	roots := make([]int, 0, len(components))
	for root, idxs := range components {
		if len(idxs) >= 2 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	groups := make([]DuplicateGroup, 0, len(roots))
	for _, root := range roots {
		idxs := components[root]
		sigNorm := norms[idxs[0]] // idxs sind sortiert, also lexikographisch kleinster Name
		var members []candidate
		for _, idx := range idxs {
			members = append(members, byNorm[norms[idx]]...)
		}
		groups = append(groups, d.makeGroup(ctx, sigNorm, members, MatchTypeSimilar, bestScore[root]))
	}
	return groups
}

// makeGroup reichert die Mitglieder mit Verknüpfungszahl und Bild-Flag an
// und berechnet die Verlauf-Signatur.
func (d *DuplicateDetector) makeGroup(ctx context.Context, sigNorm string, members []candidate,
	matchType string, similarity float64) DuplicateGroup {
	sort.Slice(members, func(i, j int) bool {
		if members[i].typ.Name != members[j].typ.Name {
			return members[i].typ.Name < members[j].typ.Name
		}
		return members[i].entity.ID < members[j].entity.ID
	})

	entities := make([]DuplicateEntity, 0, len(members))
	types := make([]string, 0, len(members))
	displayName := members[0].entity.DisplayName
	for _, m := range members {
		count, err := connectionCount(ctx, d.DB, m.typ, m.entity.ID)
		if err != nil {
			d.Logger.Warn("Verknüpfungszählung fehlgeschlagen",
				zap.String("type", m.typ.Name), zap.Uint("id", m.entity.ID), zap.Error(err))
		}
		hasImage, err := d.Blobs.Exists(ctx, m.typ.ImageKey(m.entity.ID))
		if err != nil {
			d.Logger.Warn("Bild-Check fehlgeschlagen",
				zap.String("type", m.typ.Name), zap.Uint("id", m.entity.ID), zap.Error(err))
		}
		if m.norm == sigNorm {
			displayName = m.entity.DisplayName
		}
		entities = append(entities, DuplicateEntity{
			ID:              m.entity.ID,
			Type:            m.typ.Name,
			DisplayName:     m.entity.DisplayName,
			HebrewName:      m.entity.HebrewName,
			ConnectionCount: count,
			HasImage:        hasImage,
		})
		types = append(types, m.typ.Name)
	}

	return DuplicateGroup{
		Name:       displayName,
		GroupSig:   GroupSignature(sigNorm, types),
		MatchType:  matchType,
		Similarity: similarity,
		Entities:   entities,
	}
}

// autoResolve spielt eine genehmigte Entscheidung nach: Keeper ist die
// Entity des aufgezeichneten Keep-Typs mit den meisten Verknüpfungen
// (Gleichstand: kleinste ID), alle übrigen Mitglieder werden hineinfusioniert.
// Gibt zurück, ob mindestens ein Merge ausgeführt wurde.
func (d *DuplicateDetector) autoResolve(ctx context.Context, group DuplicateGroup, keepType string) bool {
	var keeper *DuplicateEntity
	for i := range group.Entities {
		e := &group.Entities[i]
		if e.Type != keepType {
			continue
		}
		if keeper == nil || e.ConnectionCount > keeper.ConnectionCount ||
			(e.ConnectionCount == keeper.ConnectionCount && e.ID < keeper.ID) {
			keeper = e
		}
	}
	if keeper == nil {
		d.Logger.Warn("Kein Gruppen-Mitglied mit aufgezeichnetem Keep-Typ, Replay übersprungen",
			zap.String("group_sig", group.GroupSig), zap.String("keep_type", keepType))
		return false
	}

	merged := false
	for _, e := range group.Entities {
		if e.Type == keeper.Type && e.ID == keeper.ID {
			continue
		}
		if err := d.Merger.Merge(ctx, keeper.ID, keeper.Type, e.ID, e.Type); err != nil {
			d.Logger.Error("Auto-Merge aus Verlauf fehlgeschlagen",
				zap.String("group_sig", group.GroupSig),
				zap.String("delete", e.Type), zap.Uint("delete_id", e.ID), zap.Error(err))
			continue
		}
		merged = true
	}
	if merged {
		d.Logger.Info("Gruppe per Verlauf-Replay aufgelöst",
			zap.String("group_sig", group.GroupSig),
			zap.String("keeper", keeper.Type), zap.Uint("keeper_id", keeper.ID))
	}
	return merged
}

// unionFind ist die übliche Union-Find-Struktur mit Pfadkompression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
