package memo

import (
	"math"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/plan"
)

// Memo is the shared search space a single statement's optimization
// pass builds up: CopyIn interns a freshly resolved plan tree into
// groups, Optimize explores and costs those groups, and the winning
// Group's WinningExpr yields the executable physical plan.
type Memo struct {
	Catalog Catalog

	groups     []*Group
	sigToGroup map[string]int
}

// New returns an empty memo backed by cat for cardinality estimation.
// cat may be nil, in which case default selectivity constants apply.
func New(cat Catalog) *Memo {
	return &Memo{Catalog: cat, sigToGroup: map[string]int{}}
}

func (m *Memo) group(id int) *Group { return m.groups[id] }

func (m *Memo) newGroup() *Group {
	g := &Group{ID: len(m.groups), LowerBound: 0, UpperBound: math.Inf(1)}
	m.groups = append(m.groups, g)
	return g
}

// CopyIn recursively interns a freshly built plan tree (as produced by
// the resolver, with ordinary *plan.Expr children) into the memo,
// returning the id of the Group representing its root.
func (m *Memo) CopyIn(e *plan.Expr) int {
	if e.Kind == plan.Leaf {
		return e.GroupID
	}
	childGroups := make([]int, len(e.Input))
	for i, c := range e.Input {
		childGroups[i] = m.CopyIn(c)
	}
	return m.memoize(e, childGroups)
}

// memoize interns e (whose Input is replaced by Leaf(childGroups[i]))
// into an existing group if an identical expression is already present,
// or creates a new singleton group otherwise.
func (m *Memo) memoize(e *plan.Expr, childGroups []int) int {
	leaves := make([]*plan.Expr, len(childGroups))
	for i, gid := range childGroups {
		leaves[i] = plan.NewLeaf(gid)
	}
	memoExpr := e.WithChildren(leaves...)
	sig := signature(memoExpr, childGroups)
	if gid, ok := m.sigToGroup[sig]; ok {
		return gid
	}
	g := m.newGroup()
	me := &MultiExpr{Expr: memoExpr, Group: g, memo: m}
	m.addMember(g, me)
	m.sigToGroup[sig] = g.ID

	childProps := make([]LogicalProps, len(childGroups))
	for i, gid := range childGroups {
		childProps[i] = m.group(gid).Props
	}
	g.Props = deriveProps(m.Catalog, memoExpr, childProps)
	g.LowerBound = lowerBoundFor(m, memoExpr, childGroups, g.Props.RowCount)
	return g.ID
}

// addToGroup interns an alternative expression discovered by a rule
// directly into an existing group g (rather than a fresh one), the way
// apply_rule attaches a transformation's output to the group it
// rewrote -- unless an identical expression is already memoized
// elsewhere, in which case the groups are understood to be the same
// equivalence class and no new member is added.
func (m *Memo) addToGroup(g *Group, e *plan.Expr, childGroups []int) *MultiExpr {
	leaves := make([]*plan.Expr, len(childGroups))
	for i, gid := range childGroups {
		leaves[i] = plan.NewLeaf(gid)
	}
	memoExpr := e.WithChildren(leaves...)
	sig := signature(memoExpr, childGroups)
	if _, ok := m.sigToGroup[sig]; ok {
		return nil
	}
	me := &MultiExpr{Expr: memoExpr, Group: g, memo: m}
	m.addMember(g, me)
	m.sigToGroup[sig] = g.ID
	return me
}

func (m *Memo) addMember(g *Group, me *MultiExpr) {
	if me.Expr.Kind.IsLogical() {
		g.Logical = append(g.Logical, me)
	} else {
		g.Physical = append(g.Physical, me)
	}
}

// Optimize runs the Cascades search over the group rooted at rootGroup
// and returns its winning physical plan.
func (m *Memo) Optimize(rootGroup int) (*plan.Expr, error) {
	if err := m.optimizeGroup(rootGroup); err != nil {
		return nil, err
	}
	g := m.group(rootGroup)
	if g.Winner == nil {
		return nil, sql.ErrNoWinner.New(rootGroup)
	}
	return g.WinningExpr(), nil
}

// optimizeGroup is optimize_group: explore g's logical alternatives,
// implement each into physical candidates, then cost every physical
// member (recursing into its children's own optimizeGroup) to find g's
// Winner. It short-circuits once g already has a Winner, or once g's
// LowerBound meets or exceeds its UpperBound -- the group cannot beat
// whatever budget a parent (or an earlier candidate in this same group)
// already requires, so there is nothing left worth exploring.
func (m *Memo) optimizeGroup(gid int) error {
	g := m.group(gid)
	if g.Winner != nil {
		return nil
	}
	if g.LowerBound >= g.UpperBound {
		return nil
	}
	if err := m.exploreGroup(gid); err != nil {
		return err
	}
	for _, me := range append([]*MultiExpr{}, g.Logical...) {
		if err := m.implementExpr(me); err != nil {
			return err
		}
	}
	for _, me := range g.Physical {
		if err := m.optimizeInputs(me); err != nil {
			return err
		}
	}
	return nil
}

// exploreGroup is explore_group: apply every transformation rule to
// every logical member of g (to a fixed point, since a rule may fire on
// an alternative another rule just produced), discovering equivalent
// logical shapes -- join commutes and associates chief among them.
func (m *Memo) exploreGroup(gid int) error {
	g := m.group(gid)
	if g.explored {
		return nil
	}
	g.explored = true
	for i := 0; i < len(g.Logical); i++ {
		if err := m.optimizeExpr(g.Logical[i]); err != nil {
			return err
		}
	}
	return nil
}

// optimizeExpr is optimize_expr: first explore this member's children so
// rules like join associativity can inspect the left child's shape, then
// apply every transformation rule to me itself.
func (m *Memo) optimizeExpr(me *MultiExpr) error {
	for _, gid := range me.ChildGroups() {
		if err := m.exploreGroup(gid); err != nil {
			return err
		}
	}
	for _, rule := range transformRules {
		if err := m.applyRule(rule, me); err != nil {
			return err
		}
	}
	return nil
}

// applyRule is apply_rule: run one transformation rule against me,
// interning every alternative it proposes into me's group, and
// recursively optimizing any newly produced logical member so rules
// compose (e.g. associativity firing again on the freshly built subjoin).
func (m *Memo) applyRule(rule transformRule, me *MultiExpr) error {
	if !rule.Match(me.Expr) {
		return nil
	}
	alternatives := rule.Apply(m, me)
	for _, alt := range alternatives {
		childGroups := make([]int, len(alt.Input))
		for i, c := range alt.Input {
			childGroups[i] = c.GroupID
		}
		added := m.addToGroup(me.Group, alt, childGroups)
		if added != nil && added.Expr.Kind.IsLogical() {
			if err := m.optimizeExpr(added); err != nil {
				return err
			}
		}
	}
	return nil
}

// implementExpr applies every implementation rule to a logical member,
// adding the physical alternatives it proposes to the same group.
func (m *Memo) implementExpr(me *MultiExpr) error {
	for _, rule := range implementationRules {
		if !rule.Match(me.Expr) {
			continue
		}
		for _, alt := range rule.Apply(m, me) {
			childGroups := make([]int, len(alt.Input))
			for i, c := range alt.Input {
				childGroups[i] = c.GroupID
			}
			m.addToGroup(me.Group, alt, childGroups)
		}
	}
	return nil
}

// optimizeInputs is optimize_inputs: compute me's own local physical
// cost, then walk its children left to right. Each child's cost starts
// out as an estimate -- its Winner's cost if it has one, its LowerBound
// otherwise -- and stop_early aborts before costing a child once the
// running total (local cost plus every child's current estimate)
// already meets or exceeds me's Group's UpperBound, since no cheaper
// outcome is reachable from here. Before recursing into a child,
// its UpperBound is set to the most it could possibly cost while
// keeping the whole total under budget, given the other children's
// current estimates; if the child fails to produce a Winner under that
// budget, me cannot win its Group and the remaining children are never
// costed. Once every child has a Winner, me is installed as its
// Group's Winner if it beats whatever Winner (if any) is already there.
func (m *Memo) optimizeInputs(me *MultiExpr) error {
	childGroups := me.ChildGroups()
	childCard := make([]float64, len(childGroups))
	for i, gid := range childGroups {
		childCard[i] = m.group(gid).Props.RowCount
	}
	physicalCost := estimateCostWithCardinality(m.Catalog, me.Expr, me.Group, childCard)

	inputCosts := make([]float64, len(childGroups))
	for i, gid := range childGroups {
		child := m.group(gid)
		if child.Winner != nil {
			inputCosts[i] = child.Winner.Cost
		} else {
			inputCosts[i] = child.LowerBound
		}
	}

	parentUpperBound := me.Group.UpperBound
	for i, gid := range childGroups {
		if costSoFar(physicalCost, inputCosts) >= parentUpperBound {
			return nil
		}
		child := m.group(gid)
		total := costSoFar(physicalCost, inputCosts)
		child.UpperBound = parentUpperBound - (total - inputCosts[i])
		if err := m.optimizeGroup(gid); err != nil {
			return err
		}
		if child.Winner == nil {
			return nil
		}
		inputCosts[i] = child.Winner.Cost
	}

	m.tryDeclareWinner(me, physicalCost, inputCosts)
	return nil
}

// costSoFar sums a local physical cost with each child's current cost
// estimate; IEEE infinity propagates through the sum on its own, so an
// unresolved or unreachably expensive child makes the whole total +Inf
// without any special-cased sentinel check.
func costSoFar(physicalCost float64, inputCosts []float64) float64 {
	total := physicalCost
	for _, c := range inputCosts {
		total += c
	}
	return total
}

// tryDeclareWinner installs me as its Group's Winner if every input cost
// is resolved and the total beats the current Winner (or there is none
// yet).
func (m *Memo) tryDeclareWinner(me *MultiExpr, physicalCost float64, inputCosts []float64) {
	total := costSoFar(physicalCost, inputCosts)
	g := me.Group
	if g.Winner == nil || total < g.Winner.Cost {
		g.Winner = &Winner{Expr: me, Cost: total}
	}
}

func estimateCostWithCardinality(cat Catalog, e *plan.Expr, g *Group, childCard []float64) float64 {
	_ = cat
	c := estimateCost(e, childCard)
	if g.Props.RowCount > 0 {
		// Scans have no children to derive cardinality from in estimateCost;
		// substitute the group's own catalog-informed row count.
		switch e.Kind {
		case plan.SeqScan, plan.IndexScan:
			c = g.Props.RowCount * costPerRowScan
			if e.Kind == plan.IndexScan {
				c = costIndexSeek + g.Props.RowCount*costPerRowIndexScan
			}
		}
	}
	return c
}
