package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{" _            _                          _     ", "#818cf8"},
	{"| |_ __ _ ___| | ____ _ _ __ __ _ _ __ | |__  ", "#a78bfa"},
	{"| __/ _` / __| |/ / _` | '__/ _` | '_ \\| '_ \\ ", "#c084fc"},
	{"| || (_| \\__ \\   < (_| | | | (_| | |_) | | | |", "#e879f9"},
	{" \\__\\__,_|___/_|\\_\\__, |_|  \\__,_| .__/|_| |_|", "#f472b6"},
	{"                  |___/          |_|          ", "#fb7185"},
}

// PrintBanner writes the ASCII art banner to w using the given color profile.
func PrintBanner(w io.Writer, p termenv.Profile) {
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, p.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w)
}
