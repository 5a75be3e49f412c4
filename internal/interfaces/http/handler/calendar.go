package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/marv/gateway/internal/domain/calendar"
)

// CalendarHandler converts dates between the Gregorian and Persian calendars
type CalendarHandler struct {
	BaseHandler
	converter *calendar.Converter
}

// NewCalendarHandler creates a new CalendarHandler. A nil converter uses the system clock.
func NewCalendarHandler(converter *calendar.Converter) *CalendarHandler {
	if converter == nil {
		converter = calendar.NewConverter(nil)
	}
	return &CalendarHandler{converter: converter}
}

// ConvertDateResponse is the outcome of one conversion.
// Result is empty and OK false when the input is not a valid date.
// @Description Date conversion result
type ConvertDateResponse struct {
	Input         string `json:"input" example:"2024-03-20"`
	Result        string `json:"result" example:"1403-01-01"`
	ResultPersian string `json:"result_persian,omitempty" example:"۱۴۰۳-۰۱-۰۱"`
	OK            bool   `json:"ok" example:"true"`
}

// TodayResponse holds the current date in both calendars
// @Description Today's date
type TodayResponse struct {
	Gregorian     string `json:"gregorian" example:"2024-03-20"`
	Persian       string `json:"persian" example:"1403-01-01"`
	PersianDigits string `json:"persian_digits" example:"۱۴۰۳-۰۱-۰۱"`
}

// ToPersian godoc
// @Summary      Convert a Gregorian date to Persian
// @Description  Convert a YYYY-MM-DD Gregorian date to the Persian (Jalaali) calendar
// @Tags         calendar
// @Produce      json
// @Param        date query string true "Gregorian date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=ConvertDateResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /calendar/to-persian [get]
func (h *CalendarHandler) ToPersian(c *gin.Context) {
	h.convert(c, calendar.GregorianToPersian, true)
}

// ToGregorian godoc
// @Summary      Convert a Persian date to Gregorian
// @Description  Convert a YYYY-MM-DD Persian (Jalaali) date to the Gregorian calendar
// @Tags         calendar
// @Produce      json
// @Param        date query string true "Persian date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=ConvertDateResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /calendar/to-gregorian [get]
func (h *CalendarHandler) ToGregorian(c *gin.Context) {
	h.convert(c, calendar.PersianToGregorian, false)
}

func (h *CalendarHandler) convert(c *gin.Context, fn func(string) string, persian bool) {
	input, ok := c.GetQuery("date")
	if !ok {
		h.BadRequest(c, "Query parameter 'date' is required")
		return
	}

	result := fn(input)
	resp := ConvertDateResponse{Input: input, Result: result, OK: result != ""}
	if persian && result != "" {
		resp.ResultPersian = calendar.ToPersianDigits(result)
	}
	h.Success(c, resp)
}

// Today godoc
// @Summary      Today's date
// @Description  Today's date in the Gregorian and Persian calendars, in the server's time zone
// @Tags         calendar
// @Produce      json
// @Success      200 {object} dto.Response{data=TodayResponse}
// @Router       /calendar/today [get]
func (h *CalendarHandler) Today(c *gin.Context) {
	persian := h.converter.TodayPersian()
	h.Success(c, TodayResponse{
		Gregorian:     h.converter.TodayGregorian(),
		Persian:       persian,
		PersianDigits: calendar.ToPersianDigits(persian),
	})
}
