package model

// Admit checks whether child may be attached under n according to n's slots:
// the tag must have a slot, a single-valued slot must be free, and a unique
// property must not repeat among same-tag siblings. Empty values never clash.
func (n *Node) Admit(child *Node) error {
	return n.admit(child, nil)
}

// admit is Admit with the child replacing left out of the siblings.
func (n *Node) admit(child, replacing *Node) error {
	slot, ok := n.Slot(child.tag)
	if !ok {
		return &AdmissionError{Kind: NotPermitted, Parent: n.tag, Tag: child.tag}
	}
	siblings := n.FilterChildrenBy(func(c *Node) bool { return c != replacing && c.IsSimilar(child) })
	if len(siblings) == 0 {
		return nil
	}
	if !slot.HasMany {
		return &AdmissionError{Kind: OnlyOne, Parent: n.tag, Tag: child.tag}
	}
	if slot.UniqueBy != "" {
		return uniqueAmong(siblings, child.tag, slot.UniqueBy, child.PropertyValue(slot.UniqueBy))
	}
	return nil
}

// checkUnique guards a property change against the parent's unique rule.
func (n *Node) checkUnique(name string, value any) error {
	slot, ok := n.StructuralData()
	if !ok || slot.UniqueBy != name {
		return nil
	}
	siblings := n.Parent().FilterChildrenBy(func(c *Node) bool { return c.IsSimilar(n) })
	return uniqueAmong(siblings, n.tag, name, value)
}

func uniqueAmong(siblings []*Node, tag, property string, value any) error {
	if isEmpty(value) {
		return nil
	}
	for _, s := range siblings {
		if SameValue(s.PropertyValue(property), value) {
			return &AdmissionError{Kind: NotUnique, Tag: tag, Property: property, Value: value}
		}
	}
	return nil
}
