package server

import "github.com/jnnngs/5250Web/internal/aid"

// Keys the display file answers besides Enter and the roll keys.
var (
	keyExit    = aid.PF(3)
	keyRefresh = aid.PF(5)
)

// enabledKeys is the capability bitmap sent with every page. The fold key
// is only offered when records span more than one line.
func enabledKeys(foldKey aid.Key, expandable bool) aid.Bitmap {
	keys := []aid.Key{aid.Enter, aid.PgUp, aid.PgDn, keyExit, keyRefresh}
	if expandable && foldKey != "" {
		keys = append(keys, foldKey)
	}
	return aid.NewBitmap(keys...)
}
