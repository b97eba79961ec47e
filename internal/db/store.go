package db

import "transsfera/internal/models"

// Store — адаптер пакета db под контракт negotiation.OrderStore.
// Машина состояний зависит от интерфейса, продакшен-реализация — эти
// функции поверх глобального DB.
type Store struct{}

func NewStore() *Store { return &Store{} }

func (s *Store) Create(order models.Order) (string, error) {
	return CreateOrder(order)
}

func (s *Store) Get(id string) (models.Order, error) {
	return GetOrderByID(id)
}

func (s *Store) SetPrice(id string, price float64) (models.Order, error) {
	return SetOrderPrice(id, price)
}

func (s *Store) SetAccepted(id string) (models.Order, error) {
	return AcceptOrder(id)
}

func (s *Store) Update(id string, fields map[string]interface{}) (models.Order, error) {
	return UpdateOrderFields(id, fields)
}

func (s *Store) Delete(id string) (models.Order, error) {
	return DeleteOrder(id)
}

func (s *Store) ListActive() ([]models.Order, error) {
	return GetActiveOrders()
}
