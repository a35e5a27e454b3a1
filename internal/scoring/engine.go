// Package scoring turns approved score records into bounded per-category and
// overall scores, and serves the read-side reports built on them.
package scoring

import (
	"fmt"
	"sort"

	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/ledger"
)

const (
	MaxTotal   = 100
	Scale35Max = 35
	// Scale35Base is added to the 35-point view to form the combined score.
	Scale35Base = 70
)

// LeafScore is one leaf's contribution inside a main category.
type LeafScore struct {
	LeafID       int    `json:"leaf_id"`
	Leaf         string `json:"leaf"`
	Raw          int    `json:"raw"`
	Contribution int    `json:"contribution"`
	SubCap       *int   `json:"sub_cap,omitempty"`
	Records      int    `json:"records"`
}

// CategoryScore is the aggregate of one main category.
type CategoryScore struct {
	MainID    int             `json:"main_id"`
	Main      string          `json:"main"`
	Cap       int             `json:"cap"`
	Raw       int             `json:"raw"`
	Final     int             `json:"final"`
	IsLimited bool            `json:"is_limited"`
	Override  bool            `json:"override,omitempty"`
	Deduction bool            `json:"deduction,omitempty"`
	Leaves    []LeafScore     `json:"leaves"`
	Origin    category.Origin `json:"source_type"`
}

// AnnotatedRecord is a record plus the state of its main category.
type AnnotatedRecord struct {
	ledger.Record
	Category     string          `json:"category"`
	MainID       int             `json:"main_id"`
	MainCategory string          `json:"main_category"`
	MainRaw      int             `json:"main_raw"`
	MainFinal    int             `json:"main_final"`
	IsLimited    bool            `json:"is_limited"`
	Origin       category.Origin `json:"source_type"`
}

// Report is the full aggregation result for one record set.
type Report struct {
	Categories  []CategoryScore   `json:"categories"`
	Total       int               `json:"total"`
	PositiveSum int               `json:"positive_sum"`
	Deduction   int               `json:"deduction"`
	Scale35     int               `json:"scale35"`
	Combined    int               `json:"combined"`
	Records     []AnnotatedRecord `json:"records"`
}

// Engine aggregates records against a catalog. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	cat *category.Catalog
}

func NewEngine(cat *category.Catalog) *Engine { return &Engine{cat: cat} }

type resolved struct {
	main      category.Main
	leaf      category.Leaf
	leafOrder int
	mainOrder int
	known     bool
}

type mainAcc struct {
	main    category.Main
	order   int
	leaves  map[int]*LeafScore
	leafPos map[int]int
	maxRec  int
	hasRec  bool
	known   bool
}

// Compute aggregates records. Categories come out in catalog order (unknown
// ids last, by id); records keep their input order.
func (e *Engine) Compute(records []ledger.Record) Report {
	mainIndex := map[string]int{}
	for i, m := range e.cat.Mains() {
		mainIndex[m.Name] = i
	}

	accs := map[int]*mainAcc{}
	locs := make([]resolved, len(records))
	for i, r := range records {
		loc := e.resolve(r.CategoryID, mainIndex)
		locs[i] = loc
		acc, ok := accs[loc.main.ID]
		if !ok {
			acc = &mainAcc{main: loc.main, order: loc.mainOrder, leaves: map[int]*LeafScore{}, leafPos: map[int]int{}, known: loc.known}
			accs[loc.main.ID] = acc
		}
		ls, ok := acc.leaves[loc.leaf.ID]
		if !ok {
			ls = &LeafScore{LeafID: loc.leaf.ID, Leaf: loc.leaf.Name, SubCap: loc.leaf.SubCap}
			acc.leaves[loc.leaf.ID] = ls
			acc.leafPos[loc.leaf.ID] = loc.leafOrder
		}
		ls.Raw += r.Score
		ls.Records++
		if !acc.hasRec || r.Score > acc.maxRec {
			acc.maxRec = r.Score
			acc.hasRec = true
		}
	}

	ordered := make([]*mainAcc, 0, len(accs))
	for _, a := range accs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].main.ID < ordered[j].main.ID
	})

	rep := Report{Categories: make([]CategoryScore, 0, len(ordered))}
	byMain := map[int]CategoryScore{}
	sum := 0
	for _, a := range ordered {
		cs := e.score(a)
		rep.Categories = append(rep.Categories, cs)
		byMain[cs.MainID] = cs
		sum += cs.Final
		if cs.Deduction {
			if cs.Final < 0 {
				rep.Deduction += -cs.Final
			}
		} else {
			rep.PositiveSum += cs.Final
		}
	}
	rep.Total = clamp(sum, 0, MaxTotal)
	rep.Scale35 = clamp(rep.PositiveSum-rep.Deduction, 0, Scale35Max)
	rep.Combined = min(rep.Scale35+Scale35Base, MaxTotal)

	rep.Records = make([]AnnotatedRecord, len(records))
	for i, r := range records {
		loc := locs[i]
		cs := byMain[loc.main.ID]
		rep.Records[i] = AnnotatedRecord{
			Record:       r,
			Category:     loc.leaf.Name,
			MainID:       cs.MainID,
			MainCategory: cs.Main,
			MainRaw:      cs.Raw,
			MainFinal:    cs.Final,
			IsLimited:    cs.IsLimited,
			Origin:       e.origin(loc),
		}
	}
	return rep
}

func (e *Engine) score(a *mainAcc) CategoryScore {
	cs := CategoryScore{
		MainID:    a.main.ID,
		Main:      a.main.Name,
		Cap:       a.main.Cap,
		Override:  a.known && a.main.Name == e.cat.OverrideMain(),
		Deduction: a.known && a.main.Name == e.cat.DeductionMain(),
		Origin:    category.OriginStudent,
	}
	for _, ls := range a.leaves {
		ls.Contribution = ls.Raw
		if ls.SubCap != nil && ls.Contribution > *ls.SubCap {
			ls.Contribution = *ls.SubCap
		}
		cs.Raw += ls.Contribution
		cs.Leaves = append(cs.Leaves, *ls)
	}
	sort.Slice(cs.Leaves, func(i, j int) bool {
		pi, pj := a.leafPos[cs.Leaves[i].LeafID], a.leafPos[cs.Leaves[j].LeafID]
		if pi != pj {
			return pi < pj
		}
		return cs.Leaves[i].LeafID < cs.Leaves[j].LeafID
	})

	if cs.Override {
		cs.Final = min(a.maxRec, cs.Cap)
	} else {
		cs.Final = min(cs.Raw, cs.Cap)
	}
	cs.IsLimited = cs.Raw > cs.Cap
	if a.known && e.allTeacherManaged(a.main) {
		cs.Origin = category.OriginTeacher
	}
	return cs
}

func (e *Engine) resolve(id int, mainIndex map[string]int) resolved {
	m, l, ok := e.cat.Location(id)
	if !ok {
		name := fmt.Sprintf("category %d", id)
		return resolved{
			main:      category.Main{ID: id, Name: name, Cap: e.cat.DefaultCap()},
			leaf:      category.Leaf{ID: id, Name: name},
			mainOrder: len(mainIndex),
			leafOrder: -1,
		}
	}
	pos := -1
	for i, leaf := range m.Leaves {
		if leaf.ID == l.ID {
			pos = i
			break
		}
	}
	return resolved{main: m, leaf: l, leafOrder: pos, mainOrder: mainIndex[m.Name], known: true}
}

func (e *Engine) origin(loc resolved) category.Origin {
	if !loc.known {
		return category.OriginStudent
	}
	if loc.leafOrder < 0 {
		if e.allTeacherManaged(loc.main) {
			return category.OriginTeacher
		}
		return category.OriginStudent
	}
	if e.cat.IsTeacherManaged(loc.main.Name, loc.leaf.Name) {
		return category.OriginTeacher
	}
	return category.OriginStudent
}

func (e *Engine) allTeacherManaged(m category.Main) bool {
	if len(m.Leaves) == 0 {
		return false
	}
	for _, l := range m.Leaves {
		if !e.cat.IsTeacherManaged(m.Name, l.Name) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
