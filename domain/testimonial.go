package domain

// Testimonial is one slide of the carousel. Avatar holds the initials shown
// in place of a photo.
type Testimonial struct {
	Quote   string `json:"quote"`
	Author  string `json:"author"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Avatar  string `json:"avatar"`
}

// Testimonials is the fixed carousel content.
var Testimonials = []Testimonial{
	{
		Quote:   "HackStack transformed our development process. The components saved us hours of work and impressed our clients with their polished look and feel. Highly recommended!",
		Author:  "Alex Johnson",
		Role:    "Senior Developer",
		Company: "TechCorp",
		Avatar:  "AJ",
	},
	{
		Quote:   "As a designer, I appreciate how well-crafted these components are. They're both beautiful and functional, with attention to all the little details that make a UI special.",
		Author:  "Sarah Williams",
		Role:    "UX Designer",
		Company: "DesignHub",
		Avatar:  "SW",
	},
	{
		Quote:   "Our team won our last hackathon using HackStack components. They allowed us to focus on our core functionality while still having an impressive UI. Game changer!",
		Author:  "Michael Chen",
		Role:    "Product Manager",
		Company: "InnovateX",
		Avatar:  "MC",
	},
	{
		Quote:   "These components are so well built that I've incorporated them into my permanent workflow. Clean code, great design, and super easy to customize.",
		Author:  "Jessica Taylor",
		Role:    "Frontend Engineer",
		Company: "WebSolutions",
		Avatar:  "JT",
	},
	{
		Quote:   "HackStack helped our startup ship our MVP in record time. The pricing component in particular saved us days of development work and testing.",
		Author:  "David Rodriguez",
		Role:    "CTO",
		Company: "LaunchFast",
		Avatar:  "DR",
	},
}
