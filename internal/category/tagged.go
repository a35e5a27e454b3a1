package category

// TaggedLeaf is a leaf annotated with its administering side.
type TaggedLeaf struct {
	Leaf
	Origin Origin `json:"source_type"`
}

// TaggedMain is a main category annotated with its administering side.
// A main is teacher-sourced only when every leaf is teacher-managed.
type TaggedMain struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Cap         int          `json:"max_score"`
	Origin      Origin       `json:"source_type"`
	Leaves      []TaggedLeaf `json:"children"`
}

// AllCategoriesTagged returns every category with an origin tag.
func (c *Catalog) AllCategoriesTagged() []TaggedMain {
	out := make([]TaggedMain, 0, len(c.cfg.Mains))
	for _, m := range c.cfg.Mains {
		out = append(out, c.tag(m, false))
	}
	return out
}

// TeacherManagedCategories returns mains with at least one teacher-managed
// leaf, restricted to those leaves.
func (c *Catalog) TeacherManagedCategories() []TaggedMain {
	out := []TaggedMain{}
	for _, m := range c.cfg.Mains {
		tm := c.tag(m, true)
		if len(tm.Leaves) > 0 {
			tm.Origin = OriginTeacher
			out = append(out, tm)
		}
	}
	return out
}

func (c *Catalog) tag(m Main, teacherOnly bool) TaggedMain {
	tm := TaggedMain{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Cap:         m.Cap,
		Origin:      OriginStudent,
		Leaves:      []TaggedLeaf{},
	}
	pure := len(m.Leaves) > 0
	for _, l := range m.Leaves {
		origin := OriginStudent
		if c.IsTeacherManaged(m.Name, l.Name) {
			origin = OriginTeacher
		} else {
			pure = false
			if teacherOnly {
				continue
			}
		}
		tm.Leaves = append(tm.Leaves, TaggedLeaf{Leaf: cloneLeaf(l), Origin: origin})
	}
	if pure {
		tm.Origin = OriginTeacher
	}
	return tm
}
