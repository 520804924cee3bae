package db

// IndexBuilder is a fluent builder for FT index definitions over JSON documents.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Tag adds a TAG attribute.
func (b *IndexBuilder) Tag(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Path: path, Alias: alias, Type: IndexFieldTag})
	return b
}

// TagSortable adds a sortable TAG attribute.
func (b *IndexBuilder) TagSortable(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Path: path, Alias: alias, Type: IndexFieldTag, Sortable: true})
	return b
}

// Text adds a TEXT attribute.
func (b *IndexBuilder) Text(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Path: path, Alias: alias, Type: IndexFieldText})
	return b
}

// TextSortable adds a sortable TEXT attribute.
func (b *IndexBuilder) TextSortable(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Path: path, Alias: alias, Type: IndexFieldText, Sortable: true})
	return b
}

// Numeric adds a NUMERIC attribute.
func (b *IndexBuilder) Numeric(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Path: path, Alias: alias, Type: IndexFieldNumeric})
	return b
}

// NumericSortable adds a sortable NUMERIC attribute.
func (b *IndexBuilder) NumericSortable(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Path: path, Alias: alias, Type: IndexFieldNumeric, Sortable: true})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}
