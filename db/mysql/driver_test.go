package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
)

func TestDialector_ForcesParseTime(t *testing.T) {
	d, err := Dialector("quest:pw@tcp(db:3306)/quests?charset=utf8mb4")
	require.NoError(t, err)
	dsn := d.(*mysql.Dialector).DSN
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "tcp(db:3306)/quests")
}

func TestDialector_Rejects(t *testing.T) {
	_, err := Dialector("")
	assert.Error(t, err)
	_, err = Dialector("quest:pw@tcp(db:3306)quests")
	assert.Error(t, err)
}
