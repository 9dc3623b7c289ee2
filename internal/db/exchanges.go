package db

// scanExchange scans a row into an Exchange. The row must have all 5 columns in standard order.
func scanExchange(scanner interface{ Scan(dest ...any) error }) (Exchange, error) {
	var e Exchange
	err := scanner.Scan(&e.ID, &e.ConsumerID, &e.ProducerID, &e.Type, &e.Amount)
	return e, err
}

func (d *DB) queryExchanges(query string, args ...any) ([]Exchange, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

// AllExchanges returns all exchanges ordered by id
func (d *DB) AllExchanges() ([]Exchange, error) {
	return d.queryExchanges(`
		SELECT id, consumer_id, producer_id, type, amount
		FROM exchanges ORDER BY id
	`)
}

// ExchangesOfType returns the exchanges of one type ordered by id
func (d *DB) ExchangesOfType(exchangeType string) ([]Exchange, error) {
	return d.queryExchanges(`
		SELECT id, consumer_id, producer_id, type, amount
		FROM exchanges WHERE type = ? ORDER BY id
	`, exchangeType)
}

// InputsOf returns all exchanges consumed by the given activity.
func (d *DB) InputsOf(consumerID int64) ([]Exchange, error) {
	return d.queryExchanges(`
		SELECT id, consumer_id, producer_id, type, amount
		FROM exchanges WHERE consumer_id = ? ORDER BY id
	`, consumerID)
}

// CharacterizedDirect returns, per activity, the characterized impact of its
// biosphere exchanges under the given method: sum(amount * factor).
// Activities without characterized flows are absent from the map.
func (d *DB) CharacterizedDirect(method string) (map[int64]float64, error) {
	rows, err := d.conn.Query(`
		SELECT e.consumer_id, SUM(e.amount * cf.factor)
		FROM exchanges e
		JOIN characterization_factors cf ON cf.flow_id = e.producer_id AND cf.method = ?
		WHERE e.type = ?
		GROUP BY e.consumer_id
	`, method, ExchangeBiosphere)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var impact float64
		if err := rows.Scan(&id, &impact); err != nil {
			return nil, err
		}
		result[id] = impact
	}
	return result, rows.Err()
}

// Methods returns the distinct method codes that have characterization factors.
func (d *DB) Methods() ([]string, error) {
	rows, err := d.conn.Query(`SELECT DISTINCT method FROM characterization_factors ORDER BY method`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}
