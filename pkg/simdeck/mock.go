package simdeck

import "strconv"

const mockSongURL = "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav"

func mockSongs() []AnalysisResult {
	songs := []struct {
		title, artist string
		similarity    float64
	}{
		{"Bohemian Rhapsody", "Queen", 95.2},
		{"Hotel California", "Eagles", 89.7},
		{"Sweet Child O' Mine", "Guns N' Roses", 87.3},
		{"Stairway to Heaven", "Led Zeppelin", 85.9},
		{"Imagine", "John Lennon", 83.1},
		{"Yesterday", "The Beatles", 81.8},
		{"Like a Rolling Stone", "Bob Dylan", 79.4},
		{"Purple Haze", "Jimi Hendrix", 77.6},
		{"The Sound of Silence", "Simon & Garfunkel", 75.2},
		{"Paint It Black", "The Rolling Stones", 73.8},
		{"Hey Jude", "The Beatles", 71.5},
		{"Wonderwall", "Oasis", 69.3},
	}

	out := make([]AnalysisResult, len(songs))
	for i, s := range songs {
		out[i] = AnalysisResult{
			ID:         strconv.Itoa(i + 1),
			Title:      s.title,
			Subtitle:   s.artist,
			Similarity: s.similarity,
			MediaRef:   mockSongURL,
		}
	}
	return out
}

func mockImages() []AnalysisResult {
	return []AnalysisResult{
		{ID: "1", Title: "Messi Portrait", Similarity: 95.2, MediaRef: "https://via.placeholder.com/200x200/0066ff/fff?text=Messi+1"},
		{ID: "2", Title: "Messi Action", Similarity: 89.7, MediaRef: "https://via.placeholder.com/200x200/ff6600/fff?text=Messi+2"},
		{ID: "3", Title: "Messi Celebration", Similarity: 87.3, MediaRef: "https://via.placeholder.com/200x200/00ff66/fff?text=Messi+3"},
	}
}

// MockResults returns a copy of the profile's built-in demo results.
func (p Profile) MockResults() []AnalysisResult {
	return cloneResults(p.Mock)
}

func cloneResults(in []AnalysisResult) []AnalysisResult {
	if in == nil {
		return nil
	}
	out := make([]AnalysisResult, len(in))
	copy(out, in)
	return out
}
