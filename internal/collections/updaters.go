package collections

// SetFields sets fields on the document with id.
func SetFields(id string, fields map[string]interface{}) Updater {
	return func(docs []Document) []Document {
		for _, d := range docs {
			if d.ID() == id {
				for k, v := range fields {
					d[k] = v
				}
			}
		}
		return docs
	}
}

// Remove drops the document with id.
func Remove(id string) Updater {
	return func(docs []Document) []Document {
		out := docs[:0]
		for _, d := range docs {
			if d.ID() != id {
				out = append(out, d)
			}
		}
		return out
	}
}

// Upsert replaces the document with the same id or prepends doc.
func Upsert(doc Document) Updater {
	return func(docs []Document) []Document {
		for i, d := range docs {
			if d.ID() == doc.ID() {
				docs[i] = doc.Clone()
				return docs
			}
		}
		return append([]Document{doc.Clone()}, docs...)
	}
}
