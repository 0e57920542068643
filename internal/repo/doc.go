// Package repo хранит задания очереди кластера в PostgreSQL (pgx).
//
// Таблица jobs создаётся EnsureSchema. Планировщик создаёт задание и
// запрашивает отмену, worker берёт задание (Claim) и записывает код
// завершения (Complete).
package repo
