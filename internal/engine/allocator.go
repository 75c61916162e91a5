package engine

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piwi3910/CutFrame/internal/model"
)

// Allocator turns piece requirements into a cutting plan over stock bars.
type Allocator struct {
	Settings model.CutSettings
	Lengths  model.MaterialLengthProvider
	Logger   *zap.Logger
}

// New returns an Allocator. A nil provider falls back to the built-in
// material table and a nil logger discards output.
func New(settings model.CutSettings, lengths model.MaterialLengthProvider, logger *zap.Logger) *Allocator {
	if lengths == nil {
		lengths = model.DefaultMaterialLengths()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{Settings: settings, Lengths: lengths, Logger: logger}
}

// AllocateTable validates the table, allocates its pieces and returns a copy
// of the table with Cutting ID and Pieces ID filled in. A missing required
// column fails with a *model.SchemaError before anything is allocated. Rows
// that cannot be read stay at 0 and are reported in the result diagnostics.
func (a *Allocator) AllocateTable(t model.Table) (model.Table, model.AllocationResult, error) {
	pieces, rowDiags, err := model.PiecesFromTable(t)
	if err != nil {
		return model.Table{}, model.AllocationResult{}, err
	}
	for _, d := range rowDiags {
		a.Logger.Warn("Skipping row", zap.Int("position", d.Position), zap.String("reason", d.Message))
	}

	result := a.Allocate(pieces)
	result.Diagnostics = append(rowDiags, result.Diagnostics...)
	return t.WithAssignments(result), result, nil
}

// Allocate builds the cutting plan for the given pieces. Pieces are grouped by
// (material, quantity); groups run in material then quantity order and
// cutting ids continue across the quantity groups of one material.
func (a *Allocator) Allocate(pieces []model.PieceRequirement) model.AllocationResult {
	result := model.AllocationResult{PlanID: uuid.New().String()[:8]}

	lastCuttingID := make(map[string]int)
	for _, g := range groupPieces(pieces) {
		stock := a.Lengths.MaterialLength(g.key.Material)
		ga := groupAllocation{
			settings:  a.Settings,
			key:       g.key,
			stock:     stock,
			capacity:  stock - a.Settings.EndTrim,
			cuttingID: lastCuttingID[g.key.Material],
			members:   g.members,
			assigned:  make([]bool, len(g.members)),
		}
		ga.run()
		lastCuttingID[g.key.Material] = ga.cuttingID

		a.Logger.Debug("Allocated group",
			zap.String("material", g.key.Material),
			zap.Int("qty", g.key.Quantity),
			zap.Float64("stock_length", stock),
			zap.Int("pieces", len(g.members)),
			zap.Int("bars", len(ga.bars)),
		)
		for _, d := range ga.diags {
			a.Logger.Warn("Allocation diagnostic",
				zap.String("kind", string(d.Kind)),
				zap.String("material", d.Material),
				zap.Int("position", d.Position),
				zap.String("message", d.Message),
			)
		}

		result.Assignments = append(result.Assignments, ga.assignments...)
		result.Bars = append(result.Bars, ga.bars...)
		result.Unassigned = append(result.Unassigned, ga.unassigned...)
		result.Diagnostics = append(result.Diagnostics, ga.diags...)
	}

	sort.Slice(result.Assignments, func(i, j int) bool {
		return result.Assignments[i].Position < result.Assignments[j].Position
	})
	sort.SliceStable(result.Unassigned, func(i, j int) bool {
		return result.Unassigned[i].Position < result.Unassigned[j].Position
	})

	a.Logger.Info("Allocation complete",
		zap.String("plan_id", result.PlanID),
		zap.Int("pieces", len(pieces)),
		zap.Int("assigned", len(result.Assignments)),
		zap.Int("bars", len(result.Bars)),
		zap.Int("diagnostics", len(result.Diagnostics)),
	)
	return result
}

// pieceGroup holds the pieces of one (material, quantity) group, already in
// matching order.
type pieceGroup struct {
	key     model.GroupKey
	members []model.PieceRequirement
}

// groupPieces partitions pieces by (material, quantity). Groups are ordered by
// material then quantity, members by length descending, then order number,
// bin number and original position.
func groupPieces(pieces []model.PieceRequirement) []pieceGroup {
	index := make(map[model.GroupKey]int)
	var groups []pieceGroup
	for _, p := range pieces {
		k := p.Key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, pieceGroup{key: k})
		}
		groups[i].members = append(groups[i].members, p)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].key.Material != groups[j].key.Material {
			return groups[i].key.Material < groups[j].key.Material
		}
		return groups[i].key.Quantity < groups[j].key.Quantity
	})
	for _, g := range groups {
		sort.SliceStable(g.members, func(i, j int) bool {
			return lessPiece(g.members[i], g.members[j])
		})
	}
	return groups
}

func lessPiece(a, b model.PieceRequirement) bool {
	if a.Length != b.Length {
		return a.Length > b.Length
	}
	if c := compareLabel(a.OrderNo, b.OrderNo); c != 0 {
		return c < 0
	}
	if c := compareLabel(a.BinNo, b.BinNo); c != 0 {
		return c < 0
	}
	return a.Position < b.Position
}

// compareLabel orders order and bin numbers. Two numeric labels compare by
// value so "9" sorts before "10"; anything else compares as text.
func compareLabel(a, b string) int {
	if a == b {
		return 0
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil && fa != fb {
		if fa < fb {
			return -1
		}
		return 1
	}
	if a < b {
		return -1
	}
	return 1
}

// groupAllocation is the mutable state of one group's run. It owns its pool
// and the assigned marks; nothing outside sees them until the run ends.
type groupAllocation struct {
	settings  model.CutSettings
	key       model.GroupKey
	stock     float64
	capacity  float64
	cuttingID int // Last cutting id used for this material

	members  []model.PieceRequirement
	assigned []bool
	pool     []float64 // Largest first

	assignments []model.CuttingAssignment
	bars        []model.Bar
	unassigned  []model.PieceRequirement
	diags       []model.Diagnostic
}

func (g *groupAllocation) run() {
	g.pool = make([]float64, len(g.members))
	for i, p := range g.members {
		g.pool[i] = p.Length
	}

	for len(g.pool) > 0 {
		window := g.pool
		if n := g.settings.MaxPoolSize; n > 0 && len(window) > n {
			window = window[:n]
		}

		chosen := SelectBarContents(window, g.capacity, g.settings.KerfWidth, g.settings.MinOffcut)
		if len(chosen) == 0 {
			g.handleNoFit()
			continue
		}
		g.cutBar(chosen)
	}
}

// cutBar opens the next bar and matches each chosen length to the first
// unassigned member of that length. Every chosen length leaves the pool.
func (g *groupAllocation) cutBar(chosen []float64) {
	g.cuttingID++
	bar := g.newBar()

	for _, length := range chosen {
		g.removeFromPool(length)

		idx := g.firstUnassigned(length)
		if idx < 0 {
			g.diags = append(g.diags, model.Diagnostic{
				Kind:      model.DiagUnmatchedLength,
				Material:  g.key.Material,
				Quantity:  g.key.Quantity,
				Length:    length,
				Position:  -1,
				CuttingID: g.cuttingID,
				Message:   fmt.Sprintf("no unassigned %s piece of length %g for bar %d", g.key, length, g.cuttingID),
			})
			continue
		}
		g.place(&bar, idx)
	}

	if len(bar.Lengths) > 0 {
		g.bars = append(g.bars, bar)
	}
}

// handleNoFit deals with a pool in which no length fits an empty bar.
func (g *groupAllocation) handleNoFit() {
	if g.settings.NoFitPolicy == model.NoFitAbandon {
		g.abandon()
		return
	}

	length := g.pool[0]
	g.removeFromPool(length)
	idx := g.firstUnassigned(length)
	if idx < 0 {
		return
	}

	g.cuttingID++
	bar := g.newBar()
	bar.Oversize = length+g.settings.KerfWidth > g.capacity
	g.place(&bar, idx)
	g.bars = append(g.bars, bar)
	d := g.noFitDiagnostic(g.members[idx],
		fmt.Sprintf("length %g does not fit %s bar (capacity %g), cut alone on bar %d",
			length, g.key.Material, g.capacity, g.cuttingID))
	d.CuttingID = g.cuttingID
	g.diags = append(g.diags, d)
}

// abandon leaves every length that cannot fit an empty bar unassigned. When
// each of them would fit, the bar is too short for the search to run at all
// and the whole remaining pool is abandoned.
func (g *groupAllocation) abandon() {
	var keep []float64
	for _, length := range g.pool {
		if length+g.settings.KerfWidth <= g.capacity && g.capacity >= g.settings.MinOffcut {
			keep = append(keep, length)
			continue
		}
		if idx := g.firstUnassigned(length); idx >= 0 {
			g.assigned[idx] = true
			p := g.members[idx]
			g.unassigned = append(g.unassigned, p)
			g.diags = append(g.diags, g.noFitDiagnostic(p,
				fmt.Sprintf("length %g does not fit %s bar (capacity %g), left unassigned",
					length, g.key.Material, g.capacity)))
		}
	}
	g.pool = keep
}

func (g *groupAllocation) noFitDiagnostic(p model.PieceRequirement, msg string) model.Diagnostic {
	return model.Diagnostic{
		Kind:     model.DiagNoFit,
		Material: g.key.Material,
		Quantity: g.key.Quantity,
		Length:   p.Length,
		Position: p.Position,
		Message:  msg,
	}
}

func (g *groupAllocation) newBar() model.Bar {
	return model.Bar{
		Material:    g.key.Material,
		Quantity:    g.key.Quantity,
		CuttingID:   g.cuttingID,
		StockLength: g.stock,
		KerfWidth:   g.settings.KerfWidth,
		EndTrim:     g.settings.EndTrim,
	}
}

// place puts member idx on bar with the next pieces id.
func (g *groupAllocation) place(bar *model.Bar, idx int) {
	p := g.members[idx]
	g.assigned[idx] = true
	bar.Lengths = append(bar.Lengths, p.Length)
	bar.Positions = append(bar.Positions, p.Position)
	g.assignments = append(g.assignments, model.CuttingAssignment{
		Position:  p.Position,
		CuttingID: bar.CuttingID,
		PiecesID:  len(bar.Lengths),
	})
}

func (g *groupAllocation) firstUnassigned(length float64) int {
	for i, p := range g.members {
		if !g.assigned[i] && p.Length == length {
			return i
		}
	}
	return -1
}

// removeFromPool drops one occurrence of length, keeping the pool ordered.
func (g *groupAllocation) removeFromPool(length float64) {
	for i, l := range g.pool {
		if l == length {
			g.pool = append(g.pool[:i], g.pool[i+1:]...)
			return
		}
	}
}
