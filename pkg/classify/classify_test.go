package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicClassifier_IsForeign(t *testing.T) {
	c := NewHeuristicClassifier()

	tests := []struct {
		name     string
		expected bool
	}{
		{"Tolstoj, Lev Nikolajevič", true},
		{"Dostojevskij, Fjodor Michajlovič", true},
		{"  Čechov , Anton Pavlovič", true},
		{"Wilde, Oscar", true},
		{"Della Porta, Giambattista", true},
		{"Ivanov, Anna Petrovna", true},
		{"Goncharov, Ivan Alexandrovič", true},
		{"Ivanov, Ivan", false},
		{"Ivanič, Petr", false},
		{"Novák, Jan Petrovič", true},
		{"Novák, Jan, Petr Ivanovič", false},
		{"Novák, Jan Petrovič, ml.", true},
		{"Johann Wolfgang von Goethe", true},
		{"von Kleist, Heinrich", true},
		{"Cyrano de Bergerac", true},
		{"Maupassant, Guy de", true},
		{"Lafayette, Marie de", false},
		{"Honoré de, Balzac", true},
		{"de Coster, Charles", true},
		{"Lorenzo de' Medici", false},
		{"Giovanni del Monte", true},
		{"Luigi di Rosa", true},
		{"Čapek, Karel", false},
		{"Němcová, Božena", false},
		{"Karel Čapek", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.IsForeign(tt.name))
		})
	}
}

func TestHeuristicClassifier_Extra(t *testing.T) {
	c := NewHeuristicClassifier(" Pratchett ", "")
	assert.True(t, c.IsForeign("Pratchett, Terry"))
	assert.False(t, NewHeuristicClassifier().IsForeign("Pratchett, Terry"))
}
