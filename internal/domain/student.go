package domain

import (
	"time"
)

// Student representa um aluno cadastrado. Imutável após o cadastro.
type Student struct {
	ID        int64     `json:"student_id"`
	Name      string    `json:"name"`
	Course    string    `json:"course"`
	Section   string    `json:"section"`
	Room      string    `json:"room"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingEntry guarda o embedding de referência de um aluno (média das capturas).
type EmbeddingEntry struct {
	StudentID int64     `json:"student_id"`
	Name      string    `json:"name"`
	Embedding []float64 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
