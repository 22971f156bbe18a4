package jksn

// swapEstimateDepth bounds how many levels of each candidate are counted
// when choosing between the straight and swapped array forms.
const swapEstimateDepth = 3

func (st *encodeState) encodeRecord(v *Value) (*node, error) {
	control, data := lengthHeader(0x90, len(v.fields), 0x0c)
	n := newNode(v, control, data, nil)
	n.children = make([]*node, 0, 2*len(v.fields))
	for _, f := range v.fields {
		key := encodeText(Text(f.Key), f.Key)
		val, err := st.encodeValue(f.Value)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, key, val)
	}
	return n, nil
}

// encodeList encodes an array in straight form, or in row-column swapped
// form when every element is a non-empty record and the swapped tree is
// estimated to be smaller.
func (st *encodeState) encodeList(v *Value) (*node, error) {
	straight, err := st.encodeStraight(v, v.listVal)
	if err != nil {
		return nil, err
	}
	if !st.cfg.swap || !swappable(v.listVal) {
		return straight, nil
	}
	swapped, err := st.encodeSwapped(v, v.listVal)
	if err != nil {
		return nil, err
	}
	if swapped.size(swapEstimateDepth) < straight.size(swapEstimateDepth) {
		return swapped, nil
	}
	return straight, nil
}

func (st *encodeState) encodeStraight(origin *Value, elems []*Value) (*node, error) {
	control, data := lengthHeader(0x80, len(elems), 0x0c)
	n := newNode(origin, control, data, nil)
	n.children = make([]*node, len(elems))
	for i, elem := range elems {
		child, err := st.encodeValue(elem)
		if err != nil {
			return nil, err
		}
		n.children[i] = child
	}
	return n, nil
}

// swappable reports whether rows can be written column by column.
func swappable(rows []*Value) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if row.Kind() != KindRecord || len(row.fields) == 0 {
			return false
		}
	}
	return true
}

// encodeSwapped writes one (name, column) pair per distinct field name in
// first-seen order. Rows without the field get an Unspecified cell.
func (st *encodeState) encodeSwapped(origin *Value, rows []*Value) (*node, error) {
	var columns []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, f := range row.fields {
			if !seen[f.Key] {
				seen[f.Key] = true
				columns = append(columns, f.Key)
			}
		}
	}

	control, data := lengthHeader(0xa0, len(columns), 0x0c)
	n := newNode(origin, control, data, nil)
	n.children = make([]*node, 0, 2*len(columns))
	for _, name := range columns {
		cells := make([]*Value, len(rows))
		for i, row := range rows {
			cell, ok := row.Get(name)
			if !ok || cell.IsAbsent() {
				cell = Unspecified()
			}
			cells[i] = cell
		}
		col, err := st.encodeList(List(cells...))
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, encodeText(Text(name), name), col)
	}
	return n, nil
}
