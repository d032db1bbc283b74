package vault

import (
	"sync"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

var keyConnectionMap = make(map[string]map[WsConn]bool)
var connectionKeyMap = make(map[WsConn]string)
var mapLock = sync.Mutex{}

//WsConn is interface for websocket handling in vault service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// handleConnection reads story keys from the socket. Each received key
// replaces the previous subscription and gets an immediate snapshot back
func handleConnection(conn WsConn, data *ServiceData) {
	defer deleteConnection(conn)
	defer conn.Close()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			cmdapp.Log.Error(err)
			break
		}
		key := string(message)
		saveConnection(conn, key)
		if err := sendSnapshot(conn, key, data); err != nil {
			cmdapp.Log.Error(err)
		}
	}
	cmdapp.Log.Infof("handleConnection finish")
}

func deleteConnection(conn WsConn) {
	mapLock.Lock()
	defer mapLock.Unlock()
	deleteConnectionNoSync(conn)
}

func deleteConnectionNoSync(conn WsConn) {
	key, found := connectionKeyMap[conn]
	if found {
		conns, found := keyConnectionMap[key]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(keyConnectionMap, key)
			}
		}
	}
	delete(connectionKeyMap, conn)
	cmdapp.Log.Infof("deleteConnection finish: %d", len(connectionKeyMap))
}

func saveConnection(conn WsConn, key string) {
	mapLock.Lock()
	defer mapLock.Unlock()
	deleteConnectionNoSync(conn)
	connectionKeyMap[conn] = key
	conns, found := keyConnectionMap[key]
	if !found {
		conns = map[WsConn]bool{}
		keyConnectionMap[key] = conns
	}
	conns[conn] = true
	cmdapp.Log.Infof("saveConnection finish: %d", len(connectionKeyMap))
}

func getConnections(key string) (map[WsConn]bool, bool) {
	mapLock.Lock()
	defer mapLock.Unlock()
	conns, found := keyConnectionMap[key]
	if !found {
		return nil, false
	}
	res := make(map[WsConn]bool, len(conns))
	for c := range conns {
		res[c] = true
	}
	return res, true
}
