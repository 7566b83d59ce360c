package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"showcase-web/domain"
)

type widgetCard struct {
	Title       string
	Description string
	Path        string
}

var widgetCards = []widgetCard{
	{Title: "Pricing Toggle", Description: "Switch every plan card between monthly and yearly billing.", Path: "/pricing-toggle"},
	{Title: "Testimonial Carousel", Description: "Auto-playing quotes with manual navigation that pauses on hover.", Path: "/testimonial-carousel"},
	{Title: "Priority Todo List", Description: "Tasks with priorities, assignees and filters that survive a reload.", Path: "/todo-priority"},
}

func homePage(c echo.Context) error {
	return c.Render(http.StatusOK, "home", newPage("UI Kit Showcase", "/", widgetCards))
}

type pricingView struct {
	Period domain.Period
	Toggle domain.Period
	Yearly bool
	Badge  string
	Cards  []domain.PlanPrice
}

func pricingPage(c echo.Context) error {
	period := domain.ParsePeriod(c.QueryParam("period"))
	view := pricingView{
		Period: period,
		Toggle: period.Toggle(),
		Yearly: period == domain.PeriodYearly,
		Badge:  domain.YearlyBadge,
		Cards:  domain.Prices(domain.Plans, period),
	}
	return c.Render(http.StatusOK, "pricing", newPage("Pricing", "/pricing-toggle", view))
}

type notFoundView struct {
	Path string
}
