package api

import "time"

type navLink struct {
	Path   string
	Label  string
	Active bool
}

var navItems = []navLink{
	{Path: "/", Label: "Home"},
	{Path: "/pricing-toggle", Label: "Pricing Toggle"},
	{Path: "/testimonial-carousel", Label: "Testimonials"},
	{Path: "/todo-priority", Label: "Todo List"},
}

// page is the data handed to the shell layout. Content is the view model of
// the page rendered in the body slot.
type page struct {
	Title   string
	Nav     []navLink
	Year    int
	Content any
}

func newPage(title, activePath string, content any) page {
	nav := make([]navLink, len(navItems))
	for i, item := range navItems {
		item.Active = item.Path == activePath
		nav[i] = item
	}
	return page{Title: title, Nav: nav, Year: time.Now().Year(), Content: content}
}
