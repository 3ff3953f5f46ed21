package constants

// TableCompactModesKey namespaces the persisted per-table compact mode
// preference in the browser's local storage. Only the key is defined
// here; the storage itself lives in the web console.
const TableCompactModesKey = "table_compact_modes"
