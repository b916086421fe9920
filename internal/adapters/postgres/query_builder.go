package postgres

import (
	"fmt"
	"strings"
)

// queryBuilder accumulates WHERE conditions with numbered placeholders.
type queryBuilder struct {
	conditions []string
	args       []interface{}
	argID      int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{argID: 1}
}

// addCondition formats condition with the column name and the next placeholder index.
func (qb *queryBuilder) addCondition(condition, column string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, column, qb.argID))
	qb.args = append(qb.args, arg)
	qb.argID++
}

func (qb *queryBuilder) build() (string, []interface{}) {
	if len(qb.conditions) == 0 {
		return "", qb.args
	}
	return "WHERE " + strings.Join(qb.conditions, " AND "), qb.args
}
