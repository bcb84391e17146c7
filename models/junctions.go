package models

// Junction-Tabellen verknüpfen Vorlesungen mit Katalog-Entities.
// Pro (lecture_id, entity_id)-Paar existiert höchstens eine Zeile,
// abgesichert durch den zusammengesetzten Unique-Index.

type LectureDirector struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	LectureID        uint   `json:"lecture_id" gorm:"not null;uniqueIndex:idx_lecture_director"`
	DirectorID       uint   `json:"director_id" gorm:"not null;uniqueIndex:idx_lecture_director"`
	RelationshipType string `json:"relationship_type" gorm:"not null;default:discussed"`
}

func (LectureDirector) TableName() string { return "lecture_directors" }

type LectureFilm struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	LectureID        uint   `json:"lecture_id" gorm:"not null;uniqueIndex:idx_lecture_film"`
	FilmID           uint   `json:"film_id" gorm:"not null;uniqueIndex:idx_lecture_film"`
	RelationshipType string `json:"relationship_type" gorm:"not null;default:discussed"`
}

func (LectureFilm) TableName() string { return "lecture_films" }

type LectureWriter struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	LectureID        uint   `json:"lecture_id" gorm:"not null;uniqueIndex:idx_lecture_writer"`
	WriterID         uint   `json:"writer_id" gorm:"not null;uniqueIndex:idx_lecture_writer"`
	RelationshipType string `json:"relationship_type" gorm:"not null;default:discussed"`
}

func (LectureWriter) TableName() string { return "lecture_writers" }

type LectureBook struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	LectureID        uint   `json:"lecture_id" gorm:"not null;uniqueIndex:idx_lecture_book"`
	BookID           uint   `json:"book_id" gorm:"not null;uniqueIndex:idx_lecture_book"`
	RelationshipType string `json:"relationship_type" gorm:"not null;default:discussed"`
}

func (LectureBook) TableName() string { return "lecture_books" }

type LecturePainter struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	LectureID        uint   `json:"lecture_id" gorm:"not null;uniqueIndex:idx_lecture_painter"`
	PainterID        uint   `json:"painter_id" gorm:"not null;uniqueIndex:idx_lecture_painter"`
	RelationshipType string `json:"relationship_type" gorm:"not null;default:discussed"`
}

func (LecturePainter) TableName() string { return "lecture_painters" }

type LecturePainting struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	LectureID        uint   `json:"lecture_id" gorm:"not null;uniqueIndex:idx_lecture_painting"`
	PaintingID       uint   `json:"painting_id" gorm:"not null;uniqueIndex:idx_lecture_painting"`
	RelationshipType string `json:"relationship_type" gorm:"not null;default:discussed"`
}

func (LecturePainting) TableName() string { return "lecture_paintings" }

type LecturePhilosopher struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	LectureID        uint   `json:"lecture_id" gorm:"not null;uniqueIndex:idx_lecture_philosopher"`
	PhilosopherID    uint   `json:"philosopher_id" gorm:"not null;uniqueIndex:idx_lecture_philosopher"`
	RelationshipType string `json:"relationship_type" gorm:"not null;default:discussed"`
}

func (LecturePhilosopher) TableName() string { return "lecture_philosophers" }

// All liefert alle Modelle für die Auto-Migration.
func All() []interface{} {
	return []interface{}{
		&Course{}, &Lecture{},
		&Director{}, &Film{}, &Writer{}, &Book{}, &Painter{}, &Painting{}, &Philosopher{},
		&LectureDirector{}, &LectureFilm{}, &LectureWriter{}, &LectureBook{},
		&LecturePainter{}, &LecturePainting{}, &LecturePhilosopher{},
		&UploadJob{}, &DeletedEntity{}, &MergeHistory{},
	}
}
