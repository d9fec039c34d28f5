package depgraph

import "sync"

// symbolTable provides bidirectional mapping between module paths and
// the integer IDs used by the adjacency representation.
type symbolTable struct {
	strToID map[string]int
	idToStr []string
	lock    sync.RWMutex
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		strToID: make(map[string]int),
		idToStr: make([]string, 0),
	}
}

// Intern returns the unique ID for the given path, assigning a fresh ID
// on first sight.
func (table *symbolTable) Intern(path string) int {
	table.lock.RLock()
	id, exists := table.strToID[path]
	table.lock.RUnlock()

	if exists {
		return id
	}

	table.lock.Lock()
	defer table.lock.Unlock()

	// Double check.
	if existingID, found := table.strToID[path]; found {
		return existingID
	}

	id = len(table.idToStr)
	table.idToStr = append(table.idToStr, path)
	table.strToID[path] = id

	return id
}

// Lookup returns the ID for path without interning it.
func (table *symbolTable) Lookup(path string) (int, bool) {
	table.lock.RLock()
	defer table.lock.RUnlock()

	id, exists := table.strToID[path]

	return id, exists
}

// Resolve returns the path associated with the given ID, or "" when the
// ID is out of range.
func (table *symbolTable) Resolve(id int) string {
	table.lock.RLock()
	defer table.lock.RUnlock()

	if id < 0 || id >= len(table.idToStr) {
		return ""
	}

	return table.idToStr[id]
}

// Len returns the number of interned paths.
func (table *symbolTable) Len() int {
	table.lock.RLock()
	defer table.lock.RUnlock()

	return len(table.idToStr)
}
