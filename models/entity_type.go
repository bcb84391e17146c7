package models

import (
	"fmt"
	"sort"
)

// Beziehungstypen zwischen Vorlesung und Entity.
const (
	RelationshipDiscussed = "discussed"
	RelationshipMentioned = "mentioned"
)

// EntityType beschreibt eine Entity-Tabelle und ihre Junction-Tabelle.
// Die Engine-Services arbeiten generisch über diese Registry statt über
// die konkreten Structs.
type EntityType struct {
	Name          string // z. B. "director"
	Table         string // z. B. "directors"
	NameColumn    string // "name" oder "title"
	JunctionTable string // z. B. "lecture_directors"
	FKColumn      string // z. B. "director_id"
}

// ImageKey liefert den Bucket-Key für das Bild einer Entity.
func (t EntityType) ImageKey(id uint) string {
	return fmt.Sprintf("images/%s/%d.jpg", t.Name, id)
}

// entityTypes enthält alle sieben verknüpfbaren Entity-Typen.
// Kurse sind bewusst nicht enthalten.
var entityTypes = map[string]EntityType{
	"director": {
		Name: "director", Table: "directors", NameColumn: "name",
		JunctionTable: "lecture_directors", FKColumn: "director_id",
	},
	"film": {
		Name: "film", Table: "films", NameColumn: "title",
		JunctionTable: "lecture_films", FKColumn: "film_id",
	},
	"writer": {
		Name: "writer", Table: "writers", NameColumn: "name",
		JunctionTable: "lecture_writers", FKColumn: "writer_id",
	},
	"book": {
		Name: "book", Table: "books", NameColumn: "title",
		JunctionTable: "lecture_books", FKColumn: "book_id",
	},
	"painter": {
		Name: "painter", Table: "painters", NameColumn: "name",
		JunctionTable: "lecture_painters", FKColumn: "painter_id",
	},
	"painting": {
		Name: "painting", Table: "paintings", NameColumn: "title",
		JunctionTable: "lecture_paintings", FKColumn: "painting_id",
	},
	"philosopher": {
		Name: "philosopher", Table: "philosophers", NameColumn: "name",
		JunctionTable: "lecture_philosophers", FKColumn: "philosopher_id",
	},
}

// TypeByName schlägt einen Entity-Typ in der Registry nach.
func TypeByName(name string) (EntityType, bool) {
	t, ok := entityTypes[name]
	return t, ok
}

// AllEntityTypes liefert alle Typen in stabiler Reihenfolge.
func AllEntityTypes() []EntityType {
	names := make([]string, 0, len(entityTypes))
	for name := range entityTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	types := make([]EntityType, 0, len(names))
	for _, name := range names {
		types = append(types, entityTypes[name])
	}
	return types
}
