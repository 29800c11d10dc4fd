package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Mohammed01doitesky/bed/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// queryInt returns nil when the parameter is absent.
func queryInt(ctx echo.Context, name string) (*int, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &i, nil
}

// queryBool returns nil when the parameter is absent.
func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &b, nil
}

// bindBody decodes the JSON body only. ctx.Bind also binds path params, case insensitively,
// which would set UpdateStudent.StudentID from the :studentId param.
func bindBody(ctx echo.Context, i interface{}) error {
	req := ctx.Request()
	if req.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(req.Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
