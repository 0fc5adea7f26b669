package format

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
)

const fallbackWidth = 100

var (
	headerColor = color.New(color.Bold)
	nameColor   = color.New(color.FgCyan)
	starColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
	tagColor    = color.New(color.FgGreen, color.Bold)
)

// TermWidth returns the terminal width, or a sane default when stdout
// is not a terminal.
func TermWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallbackWidth
}

// Stars renders a star count compactly: 845, 1.2k, 25k.
func Stars(n int) string {
	switch {
	case n >= 10000:
		return fmt.Sprintf("%dk", n/1000)
	case n >= 1000:
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// HumanBytes renders a byte count with a binary unit.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// RepoTable writes one row per repository: name, stars, language, age
// and a truncated description sized to the terminal width.
func RepoTable(w io.Writer, repos []model.RepositorySummary, width int) {
	if len(repos) == 0 {
		return
	}
	if width <= 0 {
		width = fallbackWidth
	}

	nameW := len("REPOSITORY")
	for _, r := range repos {
		if l := DisplayWidth(r.FullName); l > nameW {
			nameW = l
		}
	}
	const starsW, langW, ageW = 6, 10, 4
	descW := width - nameW - starsW - langW - ageW - 8
	if descW < 10 {
		descW = 10
	}

	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		PadRight(headerColor.Sprint("REPOSITORY"), len("REPOSITORY"), nameW),
		PadRight(headerColor.Sprint("STARS"), len("STARS"), starsW),
		PadRight(headerColor.Sprint("LANG"), len("LANG"), langW),
		PadRight(headerColor.Sprint("AGE"), len("AGE"), ageW),
		headerColor.Sprint("DESCRIPTION"))

	for _, r := range repos {
		name := nameColor.Sprint(r.FullName)
		stars := starColor.Sprint(Stars(r.StarCount))
		lang, langVis := TruncateToWidth(r.Language, langW)
		age := ""
		if !r.UpdatedAt.IsZero() {
			age = FormatAge(time.Since(r.UpdatedAt))
		}
		desc, _ := TruncateToWidth(strings.ReplaceAll(r.Description, "\n", " "), descW)

		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			PadRight(name, DisplayWidth(r.FullName), nameW),
			PadRight(stars, DisplayWidth(Stars(r.StarCount)), starsW),
			PadRight(lang, langVis, langW),
			PadRight(dimColor.Sprint(age), DisplayWidth(age), ageW),
			desc)
	}
}

// WriteRepoDetails renders the full card for a single repository.
func WriteRepoDetails(w io.Writer, r *model.RepositorySummary) {
	fmt.Fprintf(w, "%s\n", nameColor.Sprint(r.FullName))
	if r.Description != "" {
		fmt.Fprintf(w, "%s\n", r.Description)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s   %s %s", starColor.Sprint("stars"), Stars(r.StarCount),
		headerColor.Sprint("forks"), Stars(r.ForkCount))
	if r.Language != "" {
		fmt.Fprintf(w, "   %s %s", headerColor.Sprint("language"), r.Language)
	}
	fmt.Fprintln(w)
	if len(r.Topics) > 0 {
		fmt.Fprintf(w, "  %s %s\n", headerColor.Sprint("topics"), strings.Join(r.Topics, ", "))
	}
	if !r.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  %s %s ago\n", headerColor.Sprint("updated"), FormatAge(time.Since(r.UpdatedAt)))
	}
	fmt.Fprintf(w, "  %s %s\n", headerColor.Sprint("url"), r.HTMLURL)
	fmt.Fprintf(w, "  %s %s\n", headerColor.Sprint("releases"), r.ReleasesURL)
}

// WriteRelease renders a release header, its notes and an asset table.
func WriteRelease(w io.Writer, rel *model.ReleaseSummary) {
	title := rel.Name
	if title == "" {
		title = rel.TagName
	}
	fmt.Fprintf(w, "%s %s\n", tagColor.Sprint(rel.TagName), title)
	if !rel.PublishedAt.IsZero() {
		fmt.Fprintf(w, "%s\n", dimColor.Sprintf("published %s ago by %s",
			FormatAge(time.Since(rel.PublishedAt)), rel.Author.Login))
	}
	if rel.Description != "" {
		fmt.Fprintf(w, "\n%s\n", rel.Description)
	}
	if len(rel.Assets) > 0 {
		fmt.Fprintf(w, "\n%s\n", headerColor.Sprint("ASSETS"))
		nameW := 0
		for _, a := range rel.Assets {
			if l := DisplayWidth(a.Name); l > nameW {
				nameW = l
			}
		}
		for _, a := range rel.Assets {
			size := ""
			if a.SizeBytes > 0 {
				size = HumanBytes(a.SizeBytes)
			}
			fmt.Fprintf(w, "  %s  %8s  %s\n",
				PadRight(a.Name, DisplayWidth(a.Name), nameW), size, dimColor.Sprint(a.DownloadURL))
		}
	}
	fmt.Fprintf(w, "\n%s %s\n", headerColor.Sprint("tarball"), rel.TarballURL)
	fmt.Fprintf(w, "%s %s\n", headerColor.Sprint("zipball"), rel.ZipballURL)
}

// WriteProfile renders a user profile card.
func WriteProfile(w io.Writer, u *model.UserProfile) {
	if u.Name != "" {
		fmt.Fprintf(w, "%s (%s)\n", nameColor.Sprint(u.Name), u.Login)
	} else {
		fmt.Fprintf(w, "%s\n", nameColor.Sprint(u.Login))
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "%s\n", u.Bio)
	}
	fmt.Fprintf(w, "\n  %s %d   %s %d   %s %d\n",
		headerColor.Sprint("followers"), u.Followers,
		headerColor.Sprint("following"), u.Following,
		headerColor.Sprint("repos"), u.PublicRepos)
	if u.Company != "" {
		fmt.Fprintf(w, "  %s %s\n", headerColor.Sprint("company"), u.Company)
	}
	if u.Location != "" {
		fmt.Fprintf(w, "  %s %s\n", headerColor.Sprint("location"), u.Location)
	}
	if u.Blog != "" {
		fmt.Fprintf(w, "  %s %s\n", headerColor.Sprint("blog"), u.Blog)
	}
	fmt.Fprintf(w, "  %s %s\n", headerColor.Sprint("url"), u.ProfileURL)
}

// WriteRateLimit renders one provider's quota snapshot.
func WriteRateLimit(w io.Writer, s ratelimit.Snapshot) {
	status := fmt.Sprintf("%d/%d remaining", s.Remaining, s.Limit)
	if s.Exhausted(time.Now()) {
		status = color.New(color.FgRed).Sprintf("exhausted, resets in %s",
			s.TimeUntilReset(time.Now()).Round(time.Second))
	}
	resource := ""
	if s.Resource != "" {
		resource = dimColor.Sprintf(" (%s)", s.Resource)
	}
	fmt.Fprintf(w, "%-8s %s%s\n", s.Provider, status, resource)
}
