// doc.go renders the plain-document representation of the detail projection.
// Page templating is out of scope for the backend; this text rendering is the
// document view the HTML layer wraps.
package projections

import (
	"fmt"
	"strings"
)

// NotHostedMessage is shown for a gem that exists but has no versions
const NotHostedMessage = "This gem is not currently hosted on the registry."

// RenderDocument renders a detail projection as a plain text document
func RenderDocument(d *Detail) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", d.Name)

	if !d.Hosted {
		fmt.Fprintf(&b, "\n%s\n", NotHostedMessage)
		return b.String()
	}

	fmt.Fprintf(&b, "%s\n", d.CurrentVersion.Number)
	fmt.Fprintf(&b, "Published %s\n", d.CurrentVersion.CreatedAt.Format("January 2, 2006"))

	if len(d.RuntimeDependencies) > 0 {
		b.WriteString("\nDependencies\n")
		for _, dep := range d.RuntimeDependencies {
			fmt.Fprintf(&b, "  %s %s\n", dep.Name, dep.Requirements)
		}
	}

	// The history section only appears once there is history to show
	if d.ShowHistory {
		b.WriteString("\nVersions\n")
		for _, v := range d.Versions {
			fmt.Fprintf(&b, "  %s - %s\n", v.Number, v.CreatedAt.Format("January 2, 2006"))
		}
	}

	if ls := d.Linkset; ls != nil {
		links := map[string]string{
			"Code": ls.Code, "Docs": ls.Docs, "Wiki": ls.Wiki,
			"Mail": ls.Mail, "Bugs": ls.Bugs,
		}
		var any bool
		for _, label := range []string{"Code", "Docs", "Wiki", "Mail", "Bugs"} {
			if links[label] == "" {
				continue
			}
			if !any {
				b.WriteString("\nLinks\n")
				any = true
			}
			fmt.Fprintf(&b, "  %s: %s\n", label, links[label])
		}
	}

	return b.String()
}
